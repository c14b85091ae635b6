package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
)

const defaultReconcileLimit = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type unsettledEngagementLister interface {
	ListCompletedWithoutSettlement(ctx context.Context, limit int) ([]models.Engagement, error)
}

type orphanCreditLister interface {
	ListOrphanSettlements(ctx context.Context, limit int) ([]models.LedgerEvent, error)
}

type settlementRepairer interface {
	RepairSettlement(ctx context.Context, engagementID uuid.UUID) (bool, error)
}

// SettlementReconcileJobParams configures the settlement consistency sweep.
type SettlementReconcileJobParams struct {
	Logger      *logger.Logger
	Engagements unsettledEngagementLister
	Ledger      orphanCreditLister
	Repairer    settlementRepairer
	Metrics     *metrics.SettlementMetrics
	Limit       int
}

// NewSettlementReconcileJob builds the job that repairs completed engagements
// missing their credit and reports credits without a completed engagement.
func NewSettlementReconcileJob(params SettlementReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engagements == nil {
		return nil, fmt.Errorf("engagement repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Repairer == nil {
		return nil, fmt.Errorf("settlement repairer required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	return &settlementReconcileJob{
		logg:        params.Logger,
		engagements: params.Engagements,
		ledger:      params.Ledger,
		repairer:    params.Repairer,
		metrics:     params.Metrics,
		limit:       limit,
	}, nil
}

type settlementReconcileJob struct {
	logg        *logger.Logger
	engagements unsettledEngagementLister
	ledger      orphanCreditLister
	repairer    settlementRepairer
	metrics     *metrics.SettlementMetrics
	limit       int
}

func (j *settlementReconcileJob) Name() string { return "settlement-reconcile" }

func (j *settlementReconcileJob) Run(ctx context.Context) error {
	var errs error

	unsettled, err := j.engagements.ListCompletedWithoutSettlement(ctx, j.limit)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("list unsettled engagements: %w", err))
	}
	repaired := 0
	for _, engagement := range unsettled {
		engCtx := j.logg.WithEngagementID(ctx, engagement.ID.String())
		ok, err := j.repairer.RepairSettlement(engCtx, engagement.ID)
		if err != nil {
			j.logg.Error(engCtx, "settlement repair failed", err)
			errs = multierr.Append(errs, fmt.Errorf("repair %s: %w", engagement.ID, err))
			continue
		}
		if ok {
			repaired++
		}
	}

	orphans, err := j.ledger.ListOrphanSettlements(ctx, j.limit)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("list orphan credits: %w", err))
	}
	for _, credit := range orphans {
		orphanCtx := j.logg.WithFields(ctx, map[string]any{
			"engagement_id":   credit.EngagementID.String(),
			"ledger_event_id": credit.ID.String(),
			"user_id":         credit.UserID.String(),
			"amount":          credit.Amount.StringFixed(2),
			"code":            string(pkgerrors.CodeSettlementPartialFailure),
		})
		j.logg.Warn(orphanCtx, "settlement credit without completed engagement")
	}
	j.metrics.AddOrphans(len(orphans))

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(unsettled),
		"repaired":   repaired,
		"orphans":    len(orphans),
	})
	j.logg.Info(reportCtx, "settlement reconcile complete")
	return errs
}
