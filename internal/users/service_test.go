package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
)

type stubUsersRepo struct {
	user            *models.User
	updates         map[string]any
	updatePixConfig func(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.user
	return &copied, nil
}

func (s *stubUsersRepo) UpdatePixConfig(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updatePixConfig != nil {
		return s.updatePixConfig(ctx, id, updates)
	}
	s.updates = updates
	return nil
}

func producerFixture() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "producer@example.com",
		Name:  "Producer",
		Role:  enums.ActorRoleProducer,
	}
}

func TestSavePixConfigNormalizesKey(t *testing.T) {
	repo := &stubUsersRepo{user: producerFixture()}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	user, err := svc.SavePixConfig(context.Background(), SavePixConfigInput{
		UserID:        repo.user.ID,
		PixKey:        "111.222.333-44",
		PixKeyType:    enums.PixKeyTypeCPF,
		AccountHolder: "  Producer Name  ",
		BankName:      "Banco Teste",
	})
	if err != nil {
		t.Fatalf("save pix config: %v", err)
	}
	if *user.PixKey != "11122233344" {
		t.Fatalf("expected normalized cpf, got %q", *user.PixKey)
	}
	if repo.updates["pix_key"] != "11122233344" {
		t.Fatalf("expected normalized key persisted, got %v", repo.updates["pix_key"])
	}
	if repo.updates["pix_account_holder"] != "Producer Name" {
		t.Fatalf("expected trimmed holder, got %v", repo.updates["pix_account_holder"])
	}
}

func TestSavePixConfigRejectsInvalidKey(t *testing.T) {
	repo := &stubUsersRepo{user: producerFixture()}
	svc, _ := NewService(repo)

	_, err := svc.SavePixConfig(context.Background(), SavePixConfigInput{
		UserID:        repo.user.ID,
		PixKey:        "123",
		PixKeyType:    enums.PixKeyTypeCPF,
		AccountHolder: "Producer",
	})
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSetAutoPayoutRequiresPixConfig(t *testing.T) {
	repo := &stubUsersRepo{user: producerFixture()}
	svc, _ := NewService(repo)

	err := svc.SetAutoPayout(context.Background(), repo.user.ID, true)
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	key := "11122233344"
	keyType := enums.PixKeyTypeCPF
	holder := "Producer"
	repo.user.PixKey = &key
	repo.user.PixKeyType = &keyType
	repo.user.PixAccountHolder = &holder

	if err := svc.SetAutoPayout(context.Background(), repo.user.ID, true); err != nil {
		t.Fatalf("enable auto payout: %v", err)
	}
	if repo.updates["pix_auto_payout_enabled"] != true {
		t.Fatalf("expected flag persisted, got %v", repo.updates)
	}
}

func TestRemovePixConfigClearsAllFields(t *testing.T) {
	repo := &stubUsersRepo{user: producerFixture()}
	svc, _ := NewService(repo)

	if err := svc.RemovePixConfig(context.Background(), repo.user.ID); err != nil {
		t.Fatalf("remove pix config: %v", err)
	}
	for _, column := range []string{"pix_key", "pix_key_type", "pix_account_holder", "pix_bank_name", "pix_verified_at"} {
		value, ok := repo.updates[column]
		if !ok {
			t.Fatalf("expected %s cleared", column)
		}
		if value != nil {
			t.Fatalf("expected %s nil, got %v", column, value)
		}
	}
	if repo.updates["pix_auto_payout_enabled"] != false {
		t.Fatalf("expected auto payout disabled")
	}
}

func TestNormalizePixKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		keyType enums.PixKeyType
		want    string
		wantErr bool
	}{
		{"cpf with punctuation", "111.222.333-44", enums.PixKeyTypeCPF, "11122233344", false},
		{"cpf too short", "111", enums.PixKeyTypeCPF, "", true},
		{"cnpj", "12.345.678/0001-95", enums.PixKeyTypeCNPJ, "12345678000195", false},
		{"email lowercased", "Producer@Example.COM", enums.PixKeyTypeEmail, "producer@example.com", false},
		{"email invalid", "not-an-email", enums.PixKeyTypeEmail, "", true},
		{"phone local", "(11) 98765-4321", enums.PixKeyTypePhone, "+5511987654321", false},
		{"phone with country code", "+55 11 98765-4321", enums.PixKeyTypePhone, "+5511987654321", false},
		{"random uuid", "B5E0A1C8-1DF2-4F4A-8F3A-0F0D6A6C0001", enums.PixKeyTypeRandom, "b5e0a1c8-1df2-4f4a-8f3a-0f0d6a6c0001", false},
		{"random not uuid", "abc", enums.PixKeyTypeRandom, "", true},
		{"empty key", "", enums.PixKeyTypeEmail, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePixKey(tt.key, tt.keyType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
