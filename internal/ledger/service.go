package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StepLedgerEntry   = "ledger_credit"
	StepBalanceCredit = "balance_credit"
)

// ErrAccountNotFound is returned when the credited user row does not exist.
var ErrAccountNotFound = errors.New("account not found")

// CreditError tags a credit failure with the step that broke.
type CreditError struct {
	Step string
	Err  error
}

func (e *CreditError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Step, e.Err)
}

func (e *CreditError) Unwrap() error { return e.Err }

// Service records settlement credits against the account balance ledger.
type Service interface {
	CreditSettlement(ctx context.Context, tx *gorm.DB, input CreditInput) (bool, error)
	HasSettlement(ctx context.Context, engagementID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// CreditInput captures what a settlement credit needs.
type CreditInput struct {
	EngagementID uuid.UUID       `json:"engagement_id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	UserID       uuid.UUID       `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// CreditSettlement writes the settlement marker and credits the balance using
// tx. It returns false without touching the balance when the marker already
// exists, so replays never double-credit.
func (s *service) CreditSettlement(ctx context.Context, tx *gorm.DB, input CreditInput) (bool, error) {
	if input.EngagementID == uuid.Nil {
		return false, fmt.Errorf("engagement id is required")
	}
	if input.UserID == uuid.Nil {
		return false, fmt.Errorf("user id is required")
	}
	if input.Amount.IsNegative() {
		return false, fmt.Errorf("settlement amount must not be negative")
	}

	repo := s.repo.WithTx(tx)

	metadata, err := json.Marshal(map[string]any{"reason": input.Reason})
	if err != nil {
		return false, &CreditError{Step: StepLedgerEntry, Err: err}
	}

	inserted, err := repo.InsertIfAbsent(ctx, &models.LedgerEvent{
		EngagementID: input.EngagementID,
		UserID:       input.UserID,
		ProjectID:    input.ProjectID,
		Type:         enums.LedgerEventTypeSettlementCredit,
		Amount:       input.Amount,
		Metadata:     metadata,
	})
	if err != nil {
		return false, &CreditError{Step: StepLedgerEntry, Err: err}
	}
	if !inserted {
		return false, nil
	}

	rows, err := repo.CreditBalance(ctx, input.UserID, input.Amount)
	if err != nil {
		return false, &CreditError{Step: StepBalanceCredit, Err: err}
	}
	if rows == 0 {
		return false, &CreditError{Step: StepBalanceCredit, Err: ErrAccountNotFound}
	}
	return true, nil
}

// HasSettlement reports whether the engagement's settlement marker exists.
// It reads outside any transaction, so callers still rely on the marker's
// unique index when they go on to credit.
func (s *service) HasSettlement(ctx context.Context, engagementID uuid.UUID) (bool, error) {
	_, err := s.repo.FindByEngagement(ctx, engagementID, enums.LedgerEventTypeSettlementCredit)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}
