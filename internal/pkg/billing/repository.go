package billing

import (
	"time"

	"github.com/aethex-labs/aethex/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetUserIDByUUID(uuid string) (uint, error)
	GetOrCreateProfile(userID uint) (*models.BillingProfile, error)
	GetProfileBySubscriptionID(subscriptionID string) (*models.BillingProfile, error)
	SaveProfile(profile *models.BillingProfile) error
	FindActivePlanMapping(provider, stripePriceID string) (*models.BillingPlanMapping, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserIDByUUID(uuid string) (uint, error) {
	var user models.User
	if err := r.db.Select("id").Where("uuid = ?", uuid).First(&user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r *gormRepository) GetOrCreateProfile(userID uint) (*models.BillingProfile, error) {
	return models.GetOrCreateBillingProfile(r.db, userID)
}

func (r *gormRepository) GetProfileBySubscriptionID(subscriptionID string) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) SaveProfile(profile *models.BillingProfile) error {
	return r.db.Save(profile).Error
}

func (r *gormRepository) FindActivePlanMapping(provider, stripePriceID string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("provider = ? AND stripe_price_id = ? AND is_active = ?", provider, stripePriceID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
