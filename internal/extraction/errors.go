package extraction

import (
	"fmt"
	"strings"
)

// FieldViolation names one offending field in a candidate payload.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SchemaError reports every field of a candidate record that failed
// validation. An unparseable payload is never dropped silently.
type SchemaError struct {
	Violations []FieldViolation
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Has reports whether the given field is among the violations.
func (e *SchemaError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// ExtractionReason classifies why structured extraction could not complete.
type ExtractionReason string

// Extraction failure reasons.
const (
	// ReasonModelUnavailable means the model endpoint could not serve the
	// request even after retries; the caller must offer structured entry.
	ReasonModelUnavailable ExtractionReason = "model_unavailable"
	// ReasonUnparseableOutput means the model answered but no valid record
	// could be recovered, including after the repair pass.
	ReasonUnparseableOutput ExtractionReason = "unparseable_output"
	// ReasonAmbiguousReference means the text plausibly matches more than
	// one client or project and the caller must disambiguate.
	ReasonAmbiguousReference ExtractionReason = "ambiguous_reference"
)

// ExtractionError is the failure surface of the structured extractor.
type ExtractionError struct {
	Reason ExtractionReason
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
