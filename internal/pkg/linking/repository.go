package linking

import (
	"context"
	"errors"
	"time"

	"github.com/aethex-labs/aethex/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the linking service.
type Repository interface {
	CreateCode(code *models.VerificationCode) error
	DeleteCodesByDiscordID(discordUserID string) error
	LinkWithCode(ctx context.Context, code string, userID uint, now time.Time) (*models.IdentityLink, error)
	GetLinkByUserID(userID uint) (*models.IdentityLink, error)
	GetLinkByDiscordID(discordUserID string) (*models.IdentityLink, error)
	DeleteLinkByUserID(userID uint) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a linking repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateCode(code *models.VerificationCode) error {
	return r.db.Create(code).Error
}

func (r *gormRepository) DeleteCodesByDiscordID(discordUserID string) error {
	return r.db.Where("discord_user_id = ?", discordUserID).
		Delete(&models.VerificationCode{}).Error
}

// LinkWithCode runs the whole consume sequence in one transaction. The row
// lock on the code makes concurrent consumption of the same code serialize:
// the loser of the race sees the code already deleted and gets
// ErrInvalidOrExpiredCode.
func (r *gormRepository) LinkWithCode(ctx context.Context, code string, userID uint, now time.Time) (*models.IdentityLink, error) {
	var link *models.IdentityLink

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vc models.VerificationCode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND expires_at > ?", code, now).
			First(&vc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidOrExpiredCode
			}
			return &StorageError{Step: StepLookupCode, Err: err}
		}

		var existing models.IdentityLink
		err := tx.Where("discord_user_id = ?", vc.DiscordUserID).First(&existing).Error
		switch {
		case err == nil:
			if existing.UserID != userID {
				return ErrIdentityAlreadyLinked
			}
			// Same pair relinking: refresh the snapshot, keep one row.
			existing.DiscordUsername = vc.DiscordUsername
			existing.LinkedAt = now
			if err := tx.Save(&existing).Error; err != nil {
				return &StorageError{Step: StepCreateLink, Err: err}
			}
			link = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := models.IdentityLink{
				DiscordUserID:   vc.DiscordUserID,
				UserID:          userID,
				DiscordUsername: vc.DiscordUsername,
				LinkedAt:        now,
			}
			if err := tx.Create(&created).Error; err != nil {
				return &StorageError{Step: StepCreateLink, Err: err}
			}
			link = &created
		default:
			return &StorageError{Step: StepCheckExistingLink, Err: err}
		}

		if err := tx.Delete(&models.VerificationCode{}, vc.ID).Error; err != nil {
			return &StorageError{Step: StepDeleteCode, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *gormRepository) GetLinkByUserID(userID uint) (*models.IdentityLink, error) {
	var link models.IdentityLink
	err := r.db.Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *gormRepository) GetLinkByDiscordID(discordUserID string) (*models.IdentityLink, error) {
	var link models.IdentityLink
	err := r.db.Where("discord_user_id = ?", discordUserID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *gormRepository) DeleteLinkByUserID(userID uint) (bool, error) {
	tx := r.db.Where("user_id = ?", userID).Delete(&models.IdentityLink{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
