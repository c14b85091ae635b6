package engagements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/pagination"
)

// Repository persists engagements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, engagement *models.Engagement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Engagement, error)
	List(ctx context.Context, query ListQuery) ([]models.Engagement, *pagination.Cursor, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from []enums.EngagementStatus, to enums.EngagementStatus, now time.Time) (int64, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content []models.ContentEntry, now time.Time) (int64, error)
	ListCompletedWithoutSettlement(ctx context.Context, limit int) ([]models.Engagement, error)
}

// ListQuery filters the engagement listing. Nil pointers mean "any".
type ListQuery struct {
	ProjectID    *uuid.UUID
	FreelancerID *uuid.UUID
	ClientID     *uuid.UUID
	Status       *enums.EngagementStatus
	Limit        int
	Cursor       *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an engagement repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, engagement *models.Engagement) error {
	if engagement.ID == uuid.Nil {
		engagement.ID = uuid.New()
	}
	now := time.Now().UTC()
	if engagement.CreatedAt.IsZero() {
		engagement.CreatedAt = now
	}
	engagement.UpdatedAt = engagement.CreatedAt
	if engagement.Content == nil {
		engagement.Content = []models.ContentEntry{}
	}
	return r.db.WithContext(ctx).Create(engagement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	var engagement models.Engagement
	if err := r.db.WithContext(ctx).First(&engagement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &engagement, nil
}

// FindByIDForUpdate row-locks the engagement for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	var engagement models.Engagement
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&engagement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &engagement, nil
}

// ListByProject returns every engagement on the project, rejected ones
// included, oldest first.
func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Engagement, error) {
	var rows []models.Engagement
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// List pages through non-rejected engagements newest first using a
// (created_at, id) cursor.
func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Engagement, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("status <> ?", enums.EngagementStatusRejected)
	if query.ProjectID != nil {
		q = q.Where("project_id = ?", *query.ProjectID)
	}
	if query.FreelancerID != nil {
		q = q.Where("freelancer_id = ?", *query.FreelancerID)
	}
	if query.ClientID != nil {
		q = q.Where("project_id IN (?)",
			r.db.Model(&models.Project{}).Select("id").Where("client_id = ?", *query.ClientID))
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}

	var rows []models.Engagement
	if err := q.Scopes(pagination.After(query.Cursor, query.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Split(rows, query.Limit, func(e models.Engagement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, next, nil
}

// CompareAndSetStatus moves the row to `to` only while it is in one of `from`.
// It returns the affected row count; zero means another writer got there first
// or the row was never in an allowed state.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from []enums.EngagementStatus, to enums.EngagementStatus, now time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case enums.EngagementStatusCompleted:
		updates["completed_at"] = now
	case enums.EngagementStatusRejected:
		updates["rejected_at"] = now
	}
	res := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(updates)
	return res.RowsAffected, res.Error
}

// UpdateContent overwrites the content column while the engagement is still
// open. Callers append to the slice they loaded under a row lock.
func (r *repository) UpdateContent(ctx context.Context, id uuid.UUID, content []models.ContentEntry, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ? AND status IN ?", id, []enums.EngagementStatus{
			enums.EngagementStatusPending,
			enums.EngagementStatusInProgress,
		}).
		Select("content", "updated_at").
		Updates(&models.Engagement{Content: content, UpdatedAt: now})
	return res.RowsAffected, res.Error
}

// ListCompletedWithoutSettlement finds completed engagements that have no
// settlement credit in the ledger.
func (r *repository) ListCompletedWithoutSettlement(ctx context.Context, limit int) ([]models.Engagement, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var rows []models.Engagement
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.EngagementStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM ledger_events le WHERE le.engagement_id = engagements.id AND le.type = ?)",
			enums.LedgerEventTypeSettlementCredit).
		Order("completed_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
