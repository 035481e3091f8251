package extraction

import (
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/shopspring/decimal"
)

// Recognized payload fields.
const (
	FieldClient      = "client"
	FieldProject     = "project"
	FieldWorkDate    = "work_date"
	FieldHours       = "hours"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldBillable    = "billable"
	FieldTags        = "tags"
)

// Confidence marks how a draft field value was obtained so downstream UI
// can flag estimated values for review.
type Confidence string

// Confidence levels.
const (
	// ConfidenceExplicit: the value was present in the input.
	ConfidenceExplicit Confidence = "explicit"
	// ConfidenceDefaulted: the value came from a schema default.
	ConfidenceDefaulted Confidence = "defaulted"
	// ConfidenceEstimated: the value was estimated heuristically and
	// should be reviewed by the user.
	ConfidenceEstimated Confidence = "estimated"
)

// RecordDraft is a validated work-record candidate that has not been
// resolved against stored clients and projects yet. Client and Project are
// free-text identifiers; resolution belongs to the repository collaborator.
type RecordDraft struct {
	Client      string          `json:"client,omitempty"`
	Project     string          `json:"project,omitempty"`
	WorkDate    models.Date     `json:"work_date"`
	Hours       decimal.Decimal `json:"hours"`
	HasHours    bool            `json:"has_hours"`
	Description string          `json:"description"`
	Category    *string         `json:"category,omitempty"`
	Billable    bool            `json:"billable"`
	Tags        []string        `json:"tags,omitempty"`

	// Confidence maps field names to how their values were obtained.
	Confidence map[string]Confidence `json:"confidence"`

	// Violations lists fields whose extracted values were rejected during
	// best-effort validation and replaced by defaults or estimates.
	Violations []FieldViolation `json:"violations,omitempty"`
}

func newRecordDraft() *RecordDraft {
	return &RecordDraft{
		Billable:   true,
		Confidence: make(map[string]Confidence),
	}
}

// LowConfidenceFields lists the fields whose values were estimated rather
// than taken from the input.
func (d *RecordDraft) LowConfidenceFields() []string {
	var fields []string
	for _, f := range []string{FieldClient, FieldProject, FieldWorkDate, FieldHours, FieldDescription, FieldCategory, FieldBillable, FieldTags} {
		if d.Confidence[f] == ConfidenceEstimated {
			fields = append(fields, f)
		}
	}
	return fields
}
