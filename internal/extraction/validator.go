package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/shopspring/decimal"
)

// ValidateRecord normalizes an arbitrary candidate mapping (parsed JSON or
// manual structured entry) into a RecordDraft, or fails with a SchemaError
// naming every offending field.
//
// In best-effort mode the partially valid draft is returned alongside the
// SchemaError so the extractor can repair or estimate the flagged fields;
// in strict mode any violation yields a nil draft.
func ValidateRecord(payload map[string]interface{}, bestEffort bool) (*RecordDraft, error) {
	draft := newRecordDraft()
	var violations []FieldViolation

	// work_date: ISO calendar date, defaults to today at validation time.
	if raw, ok := payload[FieldWorkDate]; ok && raw != nil {
		s, isString := raw.(string)
		if !isString {
			violations = append(violations, FieldViolation{FieldWorkDate, fmt.Sprintf("expected string, got %T", raw)})
		} else if date, err := models.ParseDate(strings.TrimSpace(s)); err != nil {
			violations = append(violations, FieldViolation{FieldWorkDate, "not an ISO calendar date (YYYY-MM-DD)"})
		} else {
			draft.WorkDate = date
			draft.Confidence[FieldWorkDate] = ConfidenceExplicit
		}
	}
	if draft.WorkDate.IsZero() && draft.Confidence[FieldWorkDate] == "" {
		draft.WorkDate = models.Today()
		draft.Confidence[FieldWorkDate] = ConfidenceDefaulted
	}

	// hours: positive decimal when present. Absence is not a violation;
	// the extractor owns estimation, the validator never invents a value.
	if raw, ok := payload[FieldHours]; ok && raw != nil {
		hours, err := coerceDecimal(raw)
		switch {
		case err != nil:
			violations = append(violations, FieldViolation{FieldHours, "not a number"})
		case !hours.IsPositive():
			violations = append(violations, FieldViolation{FieldHours, "must be greater than zero"})
		default:
			draft.Hours = hours
			draft.HasHours = true
			draft.Confidence[FieldHours] = ConfidenceExplicit
		}
	}

	// description: required, non-empty after trimming.
	if raw, ok := payload[FieldDescription]; ok && raw != nil {
		if s, isString := raw.(string); !isString {
			violations = append(violations, FieldViolation{FieldDescription, fmt.Sprintf("expected string, got %T", raw)})
		} else if trimmed := strings.TrimSpace(s); trimmed == "" {
			violations = append(violations, FieldViolation{FieldDescription, "must not be empty"})
		} else {
			draft.Description = trimmed
			draft.Confidence[FieldDescription] = ConfidenceExplicit
		}
	} else {
		violations = append(violations, FieldViolation{FieldDescription, "required"})
	}

	// category: optional, never invented.
	if raw, ok := payload[FieldCategory]; ok && raw != nil {
		if s, isString := raw.(string); !isString {
			violations = append(violations, FieldViolation{FieldCategory, fmt.Sprintf("expected string, got %T", raw)})
		} else if trimmed := strings.TrimSpace(s); trimmed != "" {
			draft.Category = &trimmed
			draft.Confidence[FieldCategory] = ConfidenceExplicit
		}
	}

	// billable: optional boolean, defaults to true.
	if raw, ok := payload[FieldBillable]; ok && raw != nil {
		if b, isBool := raw.(bool); !isBool {
			violations = append(violations, FieldViolation{FieldBillable, fmt.Sprintf("expected boolean, got %T", raw)})
		} else {
			draft.Billable = b
			draft.Confidence[FieldBillable] = ConfidenceExplicit
		}
	} else {
		draft.Confidence[FieldBillable] = ConfidenceDefaulted
	}

	// tags: optional sequence of strings, duplicates collapsed.
	if raw, ok := payload[FieldTags]; ok && raw != nil {
		tags, err := coerceTags(raw)
		if err != nil {
			violations = append(violations, FieldViolation{FieldTags, err.Error()})
		} else {
			draft.Tags = tags
			draft.Confidence[FieldTags] = ConfidenceExplicit
		}
	}

	// client / project: free-text identifiers resolved by the repository
	// collaborator; only their shape is checked here.
	for _, field := range []string{FieldClient, FieldProject} {
		raw, ok := payload[field]
		if !ok || raw == nil {
			continue
		}
		s, isString := raw.(string)
		if !isString {
			violations = append(violations, FieldViolation{field, fmt.Sprintf("expected string, got %T", raw)})
			continue
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		if field == FieldClient {
			draft.Client = trimmed
		} else {
			draft.Project = trimmed
		}
		draft.Confidence[field] = ConfidenceExplicit
	}

	if len(violations) > 0 {
		err := &SchemaError{Violations: violations}
		if bestEffort {
			return draft, err
		}
		return nil, err
	}
	return draft, nil
}

// coerceDecimal accepts the numeric shapes JSON parsing can produce plus
// numeric strings, which local models emit rather often.
func coerceDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot coerce %T to decimal", raw)
	}
}

func coerceTags(raw interface{}) ([]string, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected array of strings, got %T", raw)
	}
	seen := make(map[string]bool, len(items))
	var tags []string
	for _, item := range items {
		s, isString := item.(string)
		if !isString {
			return nil, fmt.Errorf("expected string element, got %T", item)
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		tags = append(tags, trimmed)
	}
	return tags, nil
}
