package notifications

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

// SettlementEmail is the payout receipt sent to a freelancer.
type SettlementEmail struct {
	Email  string
	Name   string
	Amount decimal.Decimal
}

// Mailer delivers transactional email.
type Mailer interface {
	SendSettlementEmail(ctx context.Context, msg SettlementEmail) error
}

// LogMailer records outgoing mail in the structured log instead of sending it.
// Used until a delivery provider is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogMailer{logg: logg}
}

func (m *LogMailer) SendSettlementEmail(ctx context.Context, msg SettlementEmail) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"to":     msg.Email,
		"amount": msg.Amount.StringFixed(2),
	})
	m.logg.Info(ctx, "settlement email queued")
	return nil
}
