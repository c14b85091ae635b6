package engagements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/internal/ledger"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
)

// Settlement steps reported in SETTLEMENT_PARTIAL_FAILURE details.
const (
	StepMarkCompleted = "mark_completed"
	StepLedgerCredit  = ledger.StepLedgerEntry
	StepBalanceCredit = ledger.StepBalanceCredit
	StepEmitEvent     = "emit_event"
)

type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return fmt.Sprintf("%s: %v", e.step, e.err) }

func (e *stepError) Unwrap() error { return e.err }

// settle completes the engagement and credits the freelancer in a single
// transaction. Either every effect commits or none does.
func (s *service) settle(ctx context.Context, engagement *models.Engagement, project *models.Project, actor *outbox.ActorRef) (*SettlementResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"engagement_id": engagement.ID.String(),
		"freelancer_id": engagement.FreelancerID.String(),
		"amount":        project.Budget.String(),
	})

	result := &SettlementResult{Amount: project.Budget}
	lastStep := StepMarkCompleted
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		rows, err := repo.CompareAndSetStatus(ctx, engagement.ID,
			[]enums.EngagementStatus{enums.EngagementStatusInProgress}, enums.EngagementStatusCompleted, now)
		if err != nil {
			return &stepError{step: StepMarkCompleted, err: err}
		}
		if rows == 0 {
			current, err := repo.FindByID(ctx, engagement.ID)
			if err != nil {
				return &stepError{step: StepMarkCompleted, err: err}
			}
			if current.Status == enums.EngagementStatusCompleted {
				result.AlreadySettled = true
				result.Engagement = current
				return nil
			}
			return transitionConflict(current.Status, enums.EngagementStatusCompleted)
		}

		lastStep = StepLedgerCredit
		credited, err := s.ledger.CreditSettlement(ctx, tx, ledger.CreditInput{
			EngagementID: engagement.ID,
			ProjectID:    project.ID,
			UserID:       engagement.FreelancerID,
			Amount:       project.Budget,
			Reason:       "engagement completed",
		})
		if err != nil {
			step := StepLedgerCredit
			var creditErr *ledger.CreditError
			if errors.As(err, &creditErr) {
				step = creditErr.Step
			}
			return &stepError{step: step, err: err}
		}
		if !credited {
			s.logg.Warn(logCtx, "settlement credit already recorded; completing without a second credit")
		}
		result.Credited = credited

		lastStep = StepEmitEvent
		event := outbox.DomainEvent{
			EventType:     enums.EventEngagementSettled,
			AggregateType: enums.AggregateEngagement,
			AggregateID:   engagement.ID,
			Actor:         actor,
			Data: payloads.EngagementSettledEvent{
				EngagementID: engagement.ID,
				ProjectID:    project.ID,
				FreelancerID: engagement.FreelancerID,
				ClientID:     project.ClientID,
				Amount:       project.Budget,
				SettledAt:    now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return &stepError{step: StepEmitEvent, err: err}
		}

		completed := *engagement
		completed.Status = enums.EngagementStatusCompleted
		completed.CompletedAt = &now
		completed.UpdatedAt = now
		result.Engagement = &completed
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return nil, err
		}
		step := lastStep
		var se *stepError
		if errors.As(err, &se) {
			step = se.step
		}
		s.metrics.IncFailure(step)
		s.logg.Error(s.logg.WithField(logCtx, "step", step), "settlement rolled back", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeSettlementPartialFailure, err, "settlement could not be completed").
			WithDetails(map[string]any{"step": step})
	}

	if result.AlreadySettled {
		s.metrics.IncAlreadySettled()
		s.logg.Info(logCtx, "engagement already settled")
		return result, nil
	}
	s.metrics.IncSettled()
	s.logg.Info(logCtx, "engagement settled")
	return result, nil
}

// RepairSettlement credits a completed engagement that has no settlement
// marker. It reports whether a credit was written; engagements that are not
// completed, or already credited, are left alone.
func (s *service) RepairSettlement(ctx context.Context, engagementID uuid.UUID) (bool, error) {
	engagement, err := s.repo.FindByID(ctx, engagementID)
	if err != nil {
		return false, fmt.Errorf("load engagement: %w", err)
	}
	if engagement.Status != enums.EngagementStatusCompleted {
		return false, nil
	}
	settled, err := s.ledger.HasSettlement(ctx, engagementID)
	if err != nil {
		return false, fmt.Errorf("check settlement marker: %w", err)
	}
	if settled {
		return false, nil
	}
	project, err := s.projects.FindByID(ctx, engagement.ProjectID)
	if err != nil {
		return false, fmt.Errorf("load project: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()

	var credited bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, engagementID)
		if err != nil {
			return err
		}
		if current.Status != enums.EngagementStatusCompleted {
			return nil
		}
		credited, err = s.ledger.CreditSettlement(ctx, tx, ledger.CreditInput{
			EngagementID: engagement.ID,
			ProjectID:    project.ID,
			UserID:       engagement.FreelancerID,
			Amount:       project.Budget,
			Reason:       "reconciliation repair",
		})
		if err != nil || !credited {
			return err
		}
		settledAt := s.now().UTC()
		if current.CompletedAt != nil {
			settledAt = current.CompletedAt.UTC()
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEngagementSettled,
			AggregateType: enums.AggregateEngagement,
			AggregateID:   engagement.ID,
			Data: payloads.EngagementSettledEvent{
				EngagementID: engagement.ID,
				ProjectID:    project.ID,
				FreelancerID: engagement.FreelancerID,
				ClientID:     project.ClientID,
				Amount:       project.Budget,
				SettledAt:    settledAt,
				Repaired:     true,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if credited {
		s.metrics.IncRepaired()
	}
	return credited, nil
}
