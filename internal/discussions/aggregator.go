package discussions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gigbridge-backend/internal/projects"
	"github.com/angelmondragon/gigbridge-backend/internal/users"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

type projectBatchReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
}

type userBatchReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// Aggregate is an engagement with its thread and the summaries a reader
// needs to render it. Project and Freelancer are nil when the referenced row
// no longer exists.
type Aggregate struct {
	Engagement  models.Engagement
	Discussions []models.DiscussionEntry
	Project     *projects.Summary
	Freelancer  *users.Summary
}

// Aggregator joins engagements with discussions, projects and freelancers
// using one grouped query per source, whatever the number of engagements.
type Aggregator struct {
	entries  Repository
	projects projectBatchReader
	users    userBatchReader
	logg     *logger.Logger
}

func NewAggregator(entries Repository, projects projectBatchReader, users userBatchReader, logg *logger.Logger) (*Aggregator, error) {
	if entries == nil {
		return nil, fmt.Errorf("discussions repository required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project reader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Aggregator{entries: entries, projects: projects, users: users, logg: logg}, nil
}

// ListForEngagement returns the thread ordered by created_at then id.
func (a *Aggregator) ListForEngagement(ctx context.Context, engagementID uuid.UUID) ([]models.DiscussionEntry, error) {
	rows, err := a.entries.ListForEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.DiscussionEntry{}
	}
	return rows, nil
}

// AttachToEngagement is AttachToAll for a single engagement.
func (a *Aggregator) AttachToEngagement(ctx context.Context, engagement models.Engagement) (*Aggregate, error) {
	out, err := a.AttachToAll(ctx, []models.Engagement{engagement})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// AttachToAll fetches discussions, projects and freelancers for every
// engagement concurrently and merges them in input order.
func (a *Aggregator) AttachToAll(ctx context.Context, engagements []models.Engagement) ([]Aggregate, error) {
	if len(engagements) == 0 {
		return []Aggregate{}, nil
	}

	engagementIDs := make([]uuid.UUID, 0, len(engagements))
	projectIDs := distinct(engagements, func(e models.Engagement) uuid.UUID { return e.ProjectID })
	freelancerIDs := distinct(engagements, func(e models.Engagement) uuid.UUID { return e.FreelancerID })
	for _, e := range engagements {
		engagementIDs = append(engagementIDs, e.ID)
	}

	var (
		entries     []models.DiscussionEntry
		projectRows []models.Project
		userRows    []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.entries.ListForEngagements(gctx, engagementIDs)
		if err != nil {
			return fmt.Errorf("load discussions: %w", err)
		}
		entries = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.projects.FindByIDs(gctx, projectIDs)
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		projectRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.users.FindByIDs(gctx, freelancerIDs)
		if err != nil {
			return fmt.Errorf("load freelancers: %w", err)
		}
		userRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	threads := make(map[uuid.UUID][]models.DiscussionEntry, len(engagements))
	for _, entry := range entries {
		threads[entry.EngagementID] = append(threads[entry.EngagementID], entry)
	}
	projectByID := make(map[uuid.UUID]*models.Project, len(projectRows))
	for i := range projectRows {
		projectByID[projectRows[i].ID] = &projectRows[i]
	}
	userByID := make(map[uuid.UUID]*models.User, len(userRows))
	for i := range userRows {
		userByID[userRows[i].ID] = &userRows[i]
	}

	out := make([]Aggregate, 0, len(engagements))
	for _, e := range engagements {
		thread := threads[e.ID]
		if thread == nil {
			thread = []models.DiscussionEntry{}
		}
		agg := Aggregate{
			Engagement:  e,
			Discussions: thread,
			Project:     projects.SummaryFromModel(projectByID[e.ProjectID]),
			Freelancer:  users.SummaryFromModel(userByID[e.FreelancerID]),
		}
		if agg.Project == nil {
			a.logg.Warn(a.logg.WithFields(ctx, map[string]any{
				"engagement_id": e.ID.String(),
				"project_id":    e.ProjectID.String(),
			}), "engagement references missing project")
		}
		if agg.Freelancer == nil {
			a.logg.Warn(a.logg.WithFields(ctx, map[string]any{
				"engagement_id": e.ID.String(),
				"freelancer_id": e.FreelancerID.String(),
			}), "engagement references missing freelancer")
		}
		out = append(out, agg)
	}
	return out, nil
}

func distinct(engagements []models.Engagement, key func(models.Engagement) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(engagements))
	out := make([]uuid.UUID, 0, len(engagements))
	for _, e := range engagements {
		id := key(e)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
