package users

import (
	"context"
	"errors"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads freelancer and client accounts. Balances and completion
// counts are written by the ledger inside the settlement transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create is used by seeds and tests; accounts are otherwise provisioned by
// the identity service.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID returns nil without an error when the account does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs batches the lookup for list hydration. Unknown ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var found []models.User
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&found).Error
	return found, err
}
