package discussions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
)

const (
	maxTextLength = 5000
	previewLength = 140
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type engagementReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
}

type projectReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Service covers posting to and reading engagement threads.
type Service interface {
	Post(ctx context.Context, input PostInput) (*models.DiscussionEntry, error)
	BackfillAttachments(ctx context.Context, input BackfillInput) (*models.DiscussionEntry, error)
	List(ctx context.Context, input ListInput) ([]models.DiscussionEntry, error)
}

// PostInput is a new message on an engagement thread.
type PostInput struct {
	EngagementID uuid.UUID
	SenderID     uuid.UUID
	Text         string
	Images       []string
	Files        []string
}

// BackfillInput appends references to an entry once their uploads finish.
type BackfillInput struct {
	EntryID  uuid.UUID
	SenderID uuid.UUID
	Images   []string
	Files    []string
}

type ListInput struct {
	EngagementID uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

type service struct {
	repo        Repository
	aggregator  *Aggregator
	engagements engagementReader
	projects    projectReader
	tx          txRunner
	outbox      outboxPublisher
	now         func() time.Time
}

// NewService wires the discussion service.
func NewService(repo Repository, aggregator *Aggregator, engagements engagementReader, projects projectReader, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discussions repository required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	if engagements == nil {
		return nil, fmt.Errorf("engagement reader required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		aggregator:  aggregator,
		engagements: engagements,
		projects:    projects,
		tx:          tx,
		outbox:      outbox,
		now:         time.Now,
	}, nil
}

func (s *service) Post(ctx context.Context, input PostInput) (*models.DiscussionEntry, error) {
	if input.EngagementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "engagement id required")
	}
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" && len(input.Images) == 0 && len(input.Files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text or at least one attachment is required")
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("text exceeds %d characters", maxTextLength))
	}
	if err := validateAttachments(input.Images, input.Files); err != nil {
		return nil, err
	}

	engagement, project, err := s.loadThread(ctx, input.EngagementID)
	if err != nil {
		return nil, err
	}

	var recipient uuid.UUID
	switch input.SenderID {
	case engagement.FreelancerID:
		recipient = project.ClientID
	case project.ClientID:
		recipient = engagement.FreelancerID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only engagement participants may post")
	}

	entry := &models.DiscussionEntry{
		EngagementID: engagement.ID,
		SenderID:     input.SenderID,
		Text:         text,
		Images:       uploads.MergeReferences(nil, input.Images),
		Files:        uploads.MergeReferences(nil, input.Files),
		CreatedAt:    s.now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discussion entry")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDiscussionPosted,
			AggregateType: enums.AggregateDiscussionEntry,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{UserID: input.SenderID},
			Data: payloads.DiscussionPostedEvent{
				EntryID:      entry.ID,
				EngagementID: engagement.ID,
				SenderID:     input.SenderID,
				RecipientID:  recipient,
				Preview:      preview(text),
			},
			OccurredAt: entry.CreatedAt,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit discussion event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) BackfillAttachments(ctx context.Context, input BackfillInput) (*models.DiscussionEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Images) == 0 && len(input.Files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one attachment is required")
	}
	if err := validateAttachments(input.Images, input.Files); err != nil {
		return nil, err
	}

	// The thread check reads through the non-transactional readers, so it
	// runs before the row lock is taken.
	entry, err := s.repo.FindByID(ctx, input.EntryID)
	if err != nil {
		return nil, entryLoadError(err)
	}
	if entry.SenderID != input.SenderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the sender may attach files to this entry")
	}
	if _, _, err := s.loadThread(ctx, entry.EngagementID); err != nil {
		return nil, err
	}

	var updated *models.DiscussionEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindByIDForUpdate(ctx, input.EntryID)
		if err != nil {
			return entryLoadError(err)
		}

		images := uploads.MergeReferences(entry.Images, input.Images)
		files := uploads.MergeReferences(entry.Files, input.Files)
		if len(images) > uploads.MaxReferencesPerField || len(files) > uploads.MaxReferencesPerField {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("entries accept at most %d references per field", uploads.MaxReferencesPerField))
		}

		now := s.now().UTC()
		if err := repo.UpdateAttachments(ctx, entry.ID, images, files, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update attachments")
		}
		entry.Images = images
		entry.Files = files
		entry.UpdatedAt = &now
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func entryLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discussion entry not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discussion entry")
}

// List returns the thread to a participant or an admin.
func (s *service) List(ctx context.Context, input ListInput) ([]models.DiscussionEntry, error) {
	if input.EngagementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "engagement id required")
	}
	engagement, project, err := s.loadThread(ctx, input.EngagementID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole != enums.UserRoleAdmin &&
		input.ActorUserID != engagement.FreelancerID &&
		input.ActorUserID != project.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
	}
	rows, err := s.aggregator.ListForEngagement(ctx, engagement.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discussions")
	}
	return rows, nil
}

// loadThread returns the live engagement and its project. Rejected
// engagements read as missing.
func (s *service) loadThread(ctx context.Context, engagementID uuid.UUID) (*models.Engagement, *models.Project, error) {
	engagement, err := s.engagements.FindByID(ctx, engagementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement")
	}
	if engagement.Status == enums.EngagementStatusRejected {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "engagement not found")
	}
	project, err := s.projects.FindByID(ctx, engagement.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return engagement, project, nil
}

func validateAttachments(images, files []string) error {
	if err := uploads.ValidateReferences("images", images); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if err := uploads.ValidateReferences("files", files); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "…"
}
