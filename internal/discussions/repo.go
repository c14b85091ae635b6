package discussions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
)

// Repository persists discussion entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.DiscussionEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscussionEntry, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DiscussionEntry, error)
	ListForEngagement(ctx context.Context, engagementID uuid.UUID) ([]models.DiscussionEntry, error)
	ListForEngagements(ctx context.Context, engagementIDs []uuid.UUID) ([]models.DiscussionEntry, error)
	UpdateAttachments(ctx context.Context, id uuid.UUID, images, files []string, now time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create stores entry with a time-ordered id, so entries sharing a
// created_at still list in the order they were written.
func (r *repository) Create(ctx context.Context, entry *models.DiscussionEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if entry.Images == nil {
		entry.Images = []string{}
	}
	if entry.Files == nil {
		entry.Files = []string{}
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscussionEntry, error) {
	var entry models.DiscussionEntry
	if err := r.db.WithContext(ctx).Take(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DiscussionEntry, error) {
	var entry models.DiscussionEntry
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListForEngagement(ctx context.Context, engagementID uuid.UUID) ([]models.DiscussionEntry, error) {
	var rows []models.DiscussionEntry
	err := r.db.WithContext(ctx).
		Where("engagement_id = ?", engagementID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListForEngagements loads the threads of several engagements in one query,
// in display order.
func (r *repository) ListForEngagements(ctx context.Context, engagementIDs []uuid.UUID) ([]models.DiscussionEntry, error) {
	if len(engagementIDs) == 0 {
		return nil, nil
	}
	var rows []models.DiscussionEntry
	err := r.db.WithContext(ctx).
		Where("engagement_id IN ?", engagementIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateAttachments(ctx context.Context, id uuid.UUID, images, files []string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DiscussionEntry{}).
		Where("id = ?", id).
		Select("images", "files", "updated_at").
		Updates(&models.DiscussionEntry{Images: images, Files: files, UpdatedAt: &now}).Error
}
