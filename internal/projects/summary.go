package projects

import (
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Summary struct {
	ID       uuid.UUID       `json:"id"`
	ClientID uuid.UUID       `json:"clientId"`
	Title    string          `json:"title"`
	Budget   decimal.Decimal `json:"budget"`
}

func SummaryFromModel(p *models.Project) *Summary {
	if p == nil {
		return nil
	}
	return &Summary{ID: p.ID, ClientID: p.ClientID, Title: p.Title, Budget: p.Budget}
}
