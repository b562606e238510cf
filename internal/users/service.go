package users

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
)

// Service manages user lookups and the producer payout profile.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	SavePixConfig(ctx context.Context, input SavePixConfigInput) (*models.User, error)
	SetAutoPayout(ctx context.Context, userID uuid.UUID, enabled bool) error
	RemovePixConfig(ctx context.Context, userID uuid.UUID) error
}

// SavePixConfigInput carries the payout destination a producer registers.
type SavePixConfigInput struct {
	UserID        uuid.UUID
	PixKey        string
	PixKeyType    enums.PixKeyType
	AccountHolder string
	BankName      string
}

type service struct {
	repo Repository
}

// NewService builds a users service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) SavePixConfig(ctx context.Context, input SavePixConfigInput) (*models.User, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	holder := strings.TrimSpace(input.AccountHolder)
	if holder == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account holder name required")
	}

	key, err := NormalizePixKey(input.PixKey, input.PixKeyType)
	if err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"pix_key":            key,
		"pix_key_type":       input.PixKeyType,
		"pix_account_holder": holder,
		"pix_verified_at":    now,
	}
	if bank := strings.TrimSpace(input.BankName); bank != "" {
		updates["pix_bank_name"] = bank
	}
	if err := s.repo.UpdatePixConfig(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save pix config")
	}

	user.PixKey = &key
	keyType := input.PixKeyType
	user.PixKeyType = &keyType
	user.PixAccountHolder = &holder
	user.PixVerifiedAt = &now
	return user, nil
}

func (s *service) SetAutoPayout(ctx context.Context, userID uuid.UUID, enabled bool) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if enabled && !user.HasPixConfig() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pix config must be saved before enabling auto payout")
	}
	if err := s.repo.UpdatePixConfig(ctx, user.ID, map[string]any{
		"pix_auto_payout_enabled": enabled,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update auto payout flag")
	}
	return nil
}

func (s *service) RemovePixConfig(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"pix_key":                 nil,
		"pix_key_type":            nil,
		"pix_account_holder":      nil,
		"pix_bank_name":           nil,
		"pix_auto_payout_enabled": false,
		"pix_verified_at":         nil,
	}
	if err := s.repo.UpdatePixConfig(ctx, user.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove pix config")
	}
	return nil
}

var (
	digitsRe = regexp.MustCompile(`\D`)
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizePixKey validates a PIX key against its declared type and returns
// the canonical form stored on the user and sent to the transfer provider.
func NormalizePixKey(raw string, keyType enums.PixKeyType) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "pix key required")
	}
	if !keyType.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid pix key type")
	}

	switch keyType {
	case enums.PixKeyTypeCPF:
		digits := digitsRe.ReplaceAllString(key, "")
		if len(digits) != 11 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "cpf key must have 11 digits")
		}
		return digits, nil
	case enums.PixKeyTypeCNPJ:
		digits := digitsRe.ReplaceAllString(key, "")
		if len(digits) != 14 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "cnpj key must have 14 digits")
		}
		return digits, nil
	case enums.PixKeyTypeEmail:
		lowered := strings.ToLower(key)
		if !emailRe.MatchString(lowered) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "email key is not a valid address")
		}
		return lowered, nil
	case enums.PixKeyTypePhone:
		digits := digitsRe.ReplaceAllString(key, "")
		// Country code 55 is implied for local numbers.
		if len(digits) == 10 || len(digits) == 11 {
			digits = "55" + digits
		}
		if len(digits) != 12 && len(digits) != 13 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "phone key must be a valid brazilian number")
		}
		return "+" + digits, nil
	case enums.PixKeyTypeRandom:
		parsed, err := uuid.Parse(key)
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "random key must be a uuid")
		}
		return parsed.String(), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid pix key type")
	}
}
