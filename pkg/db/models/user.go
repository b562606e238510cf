package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// User represents a marketplace account. Producers additionally carry the
// PIX payout configuration used by the payout executor.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null;default:'buyer'"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	Points    int             `gorm:"column:points;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	PixKey               *string           `gorm:"column:pix_key"`
	PixKeyType           *enums.PixKeyType `gorm:"column:pix_key_type;type:text"`
	PixAccountHolder     *string           `gorm:"column:pix_account_holder"`
	PixBankName          *string           `gorm:"column:pix_bank_name"`
	PixAutoPayoutEnabled bool              `gorm:"column:pix_auto_payout_enabled;not null;default:false"`
	PixVerifiedAt        *time.Time        `gorm:"column:pix_verified_at"`
}

// HasPixConfig reports whether the fields the executor requires are all set.
func (u User) HasPixConfig() bool {
	return u.PixKey != nil && *u.PixKey != "" &&
		u.PixKeyType != nil && u.PixKeyType.IsValid() &&
		u.PixAccountHolder != nil && *u.PixAccountHolder != ""
}
