package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is the billing context for work records. A work record's
// effective rate and equity terms are resolved from its project at
// aggregation time, never stored on the record itself.
type Project struct {
	ID                  int64            `json:"id"`
	ClientID            int64            `json:"client_id"`
	Name                string           `json:"name"`
	Description         string           `json:"description,omitempty"`
	HourlyRate          decimal.Decimal  `json:"hourly_rate"`
	IsActive            bool             `json:"is_active"`
	EquityType          *string          `json:"equity_type,omitempty"`
	EquityAmountPerHour *decimal.Decimal `json:"equity_amount_per_hour,omitempty"`
	EquityDetails       *string          `json:"equity_details,omitempty"`
	StartDate           *Date            `json:"start_date,omitempty"`
	EndDate             *Date            `json:"end_date,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// HasEquityTerms reports whether the project accrues an equity component
// per billed hour.
func (p *Project) HasEquityTerms() bool {
	return p.EquityType != nil && p.EquityAmountPerHour != nil && p.EquityAmountPerHour.IsPositive()
}
