package engagements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	"github.com/angelmondragon/gigbridge-backend/internal/ledger"
	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	dbpkg "github.com/angelmondragon/gigbridge-backend/pkg/db"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/gigbridge-backend/pkg/pagination"
)

const (
	activePairConstraint     = "ux_engagements_active_pair"
	defaultSettlementTimeout = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type projectReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

type aggregator interface {
	AttachToEngagement(ctx context.Context, engagement models.Engagement) (*discussions.Aggregate, error)
	AttachToAll(ctx context.Context, engagements []models.Engagement) ([]discussions.Aggregate, error)
}

// Service runs the engagement lifecycle.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.Engagement, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Reject(ctx context.Context, input RejectInput) (*models.Engagement, error)
	AppendContent(ctx context.Context, input AppendContentInput) (*models.Engagement, error)
	Settle(ctx context.Context, input SettleInput) (*SettlementResult, error)
	Get(ctx context.Context, input GetInput) (*View, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	RepairSettlement(ctx context.Context, engagementID uuid.UUID) (bool, error)
}

// ServiceParams wires the engagement service.
type ServiceParams struct {
	Repo              Repository
	Projects          projectReader
	Aggregator        aggregator
	Ledger            ledger.Service
	Outbox            outbox.Emitter
	TxRunner          txRunner
	Logger            *logger.Logger
	Metrics           *metrics.SettlementMetrics
	SettlementTimeout time.Duration
}

type service struct {
	repo              Repository
	projects          projectReader
	aggregator        aggregator
	ledger            ledger.Service
	outbox            outbox.Emitter
	tx                txRunner
	logg              *logger.Logger
	metrics           *metrics.SettlementMetrics
	settlementTimeout time.Duration
	now               func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("engagements repository required")
	}
	if params.Projects == nil {
		return nil, fmt.Errorf("project reader required")
	}
	if params.Aggregator == nil {
		return nil, fmt.Errorf("discussion aggregator required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.SettlementTimeout
	if timeout <= 0 {
		timeout = defaultSettlementTimeout
	}
	return &service{
		repo:              params.Repo,
		projects:          params.Projects,
		aggregator:        params.Aggregator,
		ledger:            params.Ledger,
		outbox:            params.Outbox,
		tx:                params.TxRunner,
		logg:              logg,
		metrics:           params.Metrics,
		settlementTimeout: timeout,
		now:               time.Now,
	}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.Engagement, error) {
	if input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	now := s.now().UTC()
	content := make([]models.ContentEntry, 0, len(input.Content))
	for i, entry := range input.Content {
		normalized, err := normalizeContent(entry, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("content[%d]: %s", i, err.Error()))
		}
		content = append(content, normalized)
	}

	project, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == input.FreelancerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot apply to your own project")
	}

	existing, err := s.repo.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing engagements")
	}
	if !IsApplicationAllowed(existing, input.FreelancerID, project.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateApplication, "an active engagement already exists for this project")
	}

	engagement := &models.Engagement{
		ProjectID:    project.ID,
		FreelancerID: input.FreelancerID,
		Status:       enums.EngagementStatusPending,
		Content:      content,
		CreatedAt:    now,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, engagement); err != nil {
			if dbpkg.IsUniqueViolation(err, activePairConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateApplication, err, "an active engagement already exists for this project")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create engagement")
		}
		return s.emit(ctx, tx, enums.EventEngagementApplied, engagement.ID, input.FreelancerID, enums.UserRoleFreelancer,
			payloads.EngagementAppliedEvent{
				EngagementID: engagement.ID,
				ProjectID:    project.ID,
				FreelancerID: input.FreelancerID,
				ClientID:     project.ClientID,
				ProjectTitle: project.Title,
			})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"engagement_id": engagement.ID.String(),
		"project_id":    project.ID.String(),
	}), "engagement applied")
	return engagement, nil
}

func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	target, err := enums.ParseEngagementStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"status": input.Status})
	}
	engagement, project, err := s.loadForClient(ctx, input.EngagementID, input.ActorUserID, input.ActorRole)
	if err != nil {
		return nil, err
	}

	if engagement.Status == target {
		return &TransitionResult{Engagement: engagement}, nil
	}
	if !CanTransition(engagement.Status, target) {
		return nil, transitionConflict(engagement.Status, target)
	}

	actor := actorRef(input.ActorUserID, input.ActorRole)
	switch target {
	case enums.EngagementStatusCompleted:
		result, err := s.settle(ctx, engagement, project, actor)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Engagement: result.Engagement, Changed: !result.AlreadySettled, Settlement: result}, nil
	case enums.EngagementStatusRejected:
		updated, err := s.reject(ctx, engagement, project, actor)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Engagement: updated, Changed: true}, nil
	default:
		updated, err := s.move(ctx, engagement, project, target, actor)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Engagement: updated, Changed: true}, nil
	}
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Engagement, error) {
	engagement, project, err := s.loadForClient(ctx, input.EngagementID, input.ActorUserID, input.ActorRole)
	if err != nil {
		return nil, err
	}
	if !CanTransition(engagement.Status, enums.EngagementStatusRejected) {
		return nil, transitionConflict(engagement.Status, enums.EngagementStatusRejected)
	}
	return s.reject(ctx, engagement, project, actorRef(input.ActorUserID, input.ActorRole))
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*SettlementResult, error) {
	engagement, project, err := s.loadForClient(ctx, input.EngagementID, input.ActorUserID, input.ActorRole)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, engagement, project, actorRef(input.ActorUserID, input.ActorRole))
}

func (s *service) AppendContent(ctx context.Context, input AppendContentInput) (*models.Engagement, error) {
	if input.EngagementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "engagement id required")
	}
	now := s.now().UTC()
	entry, err := normalizeContent(input.Entry, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	var updated *models.Engagement
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		engagement, err := repo.FindByIDForUpdate(ctx, input.EngagementID)
		if err != nil {
			return mapLoadError(err)
		}
		if engagement.Status == enums.EngagementStatusRejected || engagement.FreelancerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
		}
		if engagement.Status == enums.EngagementStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "content is closed once an engagement is completed").
				WithDetails(map[string]any{"status": engagement.Status})
		}
		content := append(append([]models.ContentEntry{}, engagement.Content...), entry)
		rows, err := repo.UpdateContent(ctx, engagement.ID, content, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append content")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "engagement changed while appending content")
		}
		engagement.Content = content
		engagement.UpdatedAt = now
		updated = engagement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*View, error) {
	if input.EngagementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "engagement id required")
	}
	engagement, err := s.loadLive(ctx, input.EngagementID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole != enums.UserRoleAdmin && engagement.FreelancerID != input.ActorUserID {
		project, err := s.loadProject(ctx, engagement.ProjectID)
		if err != nil {
			return nil, err
		}
		if project.ClientID != input.ActorUserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
		}
	}

	agg, err := s.aggregator.AttachToEngagement(ctx, *engagement)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement relations")
	}
	view := NewView(*agg)
	return &view, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListQuery{
		ProjectID:    params.ProjectID,
		FreelancerID: params.FreelancerID,
		Limit:        params.Limit,
	}
	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseEngagementStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		if status == enums.EngagementStatusRejected {
			return &ListResult{Items: []View{}}, nil
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	switch params.ActorRole {
	case enums.UserRoleAdmin:
	case enums.UserRoleFreelancer:
		if params.FreelancerID != nil && *params.FreelancerID != params.ActorUserID {
			return &ListResult{Items: []View{}}, nil
		}
		actor := params.ActorUserID
		query.FreelancerID = &actor
	case enums.UserRoleClient:
		actor := params.ActorUserID
		query.ClientID = &actor
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted to list engagements")
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list engagements")
	}
	aggs, err := s.aggregator.AttachToAll(ctx, rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement relations")
	}

	items := make([]View, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, NewView(agg))
	}
	result := &ListResult{Items: items}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

func (s *service) move(ctx context.Context, engagement *models.Engagement, project *models.Project, target enums.EngagementStatus, actor *outbox.ActorRef) (*models.Engagement, error) {
	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).CompareAndSetStatus(ctx, engagement.ID, []enums.EngagementStatus{engagement.Status}, target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update engagement status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "engagement changed concurrently")
		}
		return s.emitStatusChanged(ctx, tx, engagement, project, target, now, actor)
	})
	if err != nil {
		return nil, err
	}
	updated := *engagement
	updated.Status = target
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *service) reject(ctx context.Context, engagement *models.Engagement, project *models.Project, actor *outbox.ActorRef) (*models.Engagement, error) {
	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).CompareAndSetStatus(ctx, engagement.ID,
			sourcesFor(enums.EngagementStatusRejected), enums.EngagementStatusRejected, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject engagement")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "engagement changed concurrently")
		}
		return s.emitStatusChanged(ctx, tx, engagement, project, enums.EngagementStatusRejected, now, actor)
	})
	if err != nil {
		return nil, err
	}
	updated := *engagement
	updated.Status = enums.EngagementStatusRejected
	updated.RejectedAt = &now
	updated.UpdatedAt = now
	s.logg.Info(s.logg.WithEngagementID(ctx, engagement.ID.String()), "engagement rejected")
	return &updated, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, engagement *models.Engagement, project *models.Project, to enums.EngagementStatus, at time.Time, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventEngagementStatusChanged,
		AggregateType: enums.AggregateEngagement,
		AggregateID:   engagement.ID,
		Actor:         actor,
		Data: payloads.EngagementStatusChangedEvent{
			EngagementID: engagement.ID,
			ProjectID:    project.ID,
			FreelancerID: engagement.FreelancerID,
			ClientID:     project.ClientID,
			From:         engagement.Status,
			To:           to,
			ChangedAt:    at,
		},
		OccurredAt: at,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregateID, actorID uuid.UUID, role enums.UserRole, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateEngagement,
		AggregateID:   aggregateID,
		Actor:         actorRef(actorID, role),
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit outbox event")
	}
	return nil
}

// loadLive returns the engagement unless it is missing or rejected.
func (s *service) loadLive(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	engagement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if engagement.Status == enums.EngagementStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
	}
	return engagement, nil
}

// loadForClient loads the live engagement and its project and checks that
// the actor is the project's client or an admin.
func (s *service) loadForClient(ctx context.Context, id, actorID uuid.UUID, role enums.UserRole) (*models.Engagement, *models.Project, error) {
	if id == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "engagement id required")
	}
	if actorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	engagement, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	project, err := s.loadProject(ctx, engagement.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if role != enums.UserRoleAdmin && project.ClientID != actorID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the project client may change engagement status")
	}
	return engagement, project, nil
}

func (s *service) loadProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return project, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement")
}

func transitionConflict(from, to enums.EngagementStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move engagement from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func actorRef(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}

func normalizeContent(input ContentInput, now time.Time) (models.ContentEntry, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.ContentEntry{}, fmt.Errorf("title is required")
	}
	if err := uploads.ValidateReferences("images", input.Images); err != nil {
		return models.ContentEntry{}, err
	}
	if err := uploads.ValidateReferences("files", input.Files); err != nil {
		return models.ContentEntry{}, err
	}
	return models.ContentEntry{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Images:      uploads.MergeReferences(nil, input.Images),
		Files:       uploads.MergeReferences(nil, input.Files),
		SubmittedAt: now,
	}, nil
}
