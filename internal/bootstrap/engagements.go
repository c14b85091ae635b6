package bootstrap

import (
	"fmt"

	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	"github.com/angelmondragon/gigbridge-backend/internal/engagements"
	"github.com/angelmondragon/gigbridge-backend/internal/ledger"
	"github.com/angelmondragon/gigbridge-backend/internal/projects"
	"github.com/angelmondragon/gigbridge-backend/internal/users"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
)

// EngagementStack is the engagement service with the repositories it was
// built from. The API and the settlement sweep share it so both settle
// through the same code.
type EngagementStack struct {
	Projects    *projects.Repository
	Users       *users.Repository
	Engagements engagements.Repository
	Discussions discussions.Repository
	Ledger      ledger.Repository
	OutboxRepo  *outbox.Repository
	Outbox      *outbox.Service
	Aggregator  *discussions.Aggregator
	Service     engagements.Service
}

func (p *Process) Engagements(settlement *metrics.SettlementMetrics) (*EngagementStack, error) {
	gormDB := p.DB.DB()
	s := &EngagementStack{
		Projects:    projects.NewRepository(gormDB),
		Users:       users.NewRepository(gormDB),
		Engagements: engagements.NewRepository(gormDB),
		Discussions: discussions.NewRepository(gormDB),
		Ledger:      ledger.NewRepository(gormDB),
		OutboxRepo:  outbox.NewRepository(gormDB),
	}
	s.Outbox = outbox.NewService(s.OutboxRepo, p.Logger)

	ledgerService, err := ledger.NewService(s.Ledger)
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}
	if s.Aggregator, err = discussions.NewAggregator(s.Discussions, s.Projects, s.Users, p.Logger); err != nil {
		return nil, fmt.Errorf("discussion aggregator: %w", err)
	}
	s.Service, err = engagements.NewService(engagements.ServiceParams{
		Repo:              s.Engagements,
		Projects:          s.Projects,
		Aggregator:        s.Aggregator,
		Ledger:            ledgerService,
		Outbox:            s.Outbox,
		TxRunner:          p.DB,
		Logger:            p.Logger,
		Metrics:           settlement,
		SettlementTimeout: p.Config.Settlement.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("engagement service: %w", err)
	}
	return s, nil
}
