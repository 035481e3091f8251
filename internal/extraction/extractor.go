package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/garyjia/invoice-agent/internal/ai"
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TextGenerator is the slice of the LLM gateway the extractor needs.
type TextGenerator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) (string, error)
}

// ProjectHint carries a caller-supplied client/project identity for texts
// that do not name one.
type ProjectHint struct {
	Client  string
	Project string
}

// Extractor converts free-form work descriptions into validated record
// drafts via the LLM gateway. It never silently invents a full record: when
// the model is unreachable or its output cannot be repaired, the failure
// surfaces so the caller can fall back to structured entry.
type Extractor struct {
	gateway     TextGenerator
	temperature float32
	maxTokens   int
	logger      *zap.Logger

	// today is injectable for deterministic tests.
	today func() models.Date
}

// NewExtractor creates a structured extractor on top of a text generator.
func NewExtractor(gateway TextGenerator, temperature float32, maxTokens int, logger *zap.Logger) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Extractor{
		gateway:     gateway,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
		today:       models.Today,
	}
}

// Extract turns free text into a validated RecordDraft. Explicit values in
// the text are reproduced exactly; missing hours are estimated and flagged
// as low confidence; a missing client/project is filled from the hint or
// left empty for caller resolution, never guessed.
func (e *Extractor) Extract(ctx context.Context, freeText string, hint *ProjectHint) (*RecordDraft, error) {
	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		return nil, &ExtractionError{Reason: ReasonUnparseableOutput, Detail: "empty input text"}
	}

	raw, err := e.gateway.Generate(ctx, ai.GenerateRequest{
		Prompt:       buildExtractionPrompt(freeText),
		SystemPrompt: workRecordSystemPrompt,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return nil, e.wrapGatewayError(err)
	}

	payload, parseErr := parsePayload(raw)
	if parseErr != nil {
		e.logger.Warn("Model output did not parse, attempting repair pass",
			zap.Error(parseErr),
			zap.String("output", truncate(raw, 200)))
		payload, parseErr = e.repair(ctx, raw)
		if parseErr != nil {
			return nil, parseErr
		}
	}

	draft, valErr := ValidateRecord(payload, true)
	if valErr != nil {
		var schemaErr *SchemaError
		if !errors.As(valErr, &schemaErr) {
			return nil, valErr
		}
		// Description is the one field nobody may invent.
		if schemaErr.Has(FieldDescription) {
			return nil, &ExtractionError{
				Reason: ReasonUnparseableOutput,
				Detail: "no usable description in model output",
				Err:    schemaErr,
			}
		}
		draft.Violations = schemaErr.Violations
		e.logger.Warn("Best-effort validation flagged fields", zap.Error(schemaErr))
	}

	e.applyDefaults(draft, freeText, hint)

	e.logger.Info("Work record extracted",
		zap.String("description", truncate(draft.Description, 80)),
		zap.String("hours", draft.Hours.String()),
		zap.Strings("low_confidence", draft.LowConfidenceFields()))
	return draft, nil
}

// repair re-prompts the model once to fix unparseable formatting.
func (e *Extractor) repair(ctx context.Context, badOutput string) (map[string]interface{}, error) {
	raw, err := e.gateway.Generate(ctx, ai.GenerateRequest{
		Prompt:       buildRepairPrompt(badOutput),
		SystemPrompt: workRecordSystemPrompt,
		Temperature:  0.1,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return nil, e.wrapGatewayError(err)
	}

	payload, parseErr := parsePayload(raw)
	if parseErr != nil {
		return nil, &ExtractionError{
			Reason: ReasonUnparseableOutput,
			Detail: "model output unparseable after repair pass",
			Err:    parseErr,
		}
	}
	return payload, nil
}

func (e *Extractor) wrapGatewayError(err error) error {
	var gwErr *ai.GatewayError
	if errors.As(err, &gwErr) && gwErr.Kind == ai.KindMalformedResponse {
		return &ExtractionError{Reason: ReasonUnparseableOutput, Err: err}
	}
	return &ExtractionError{Reason: ReasonModelUnavailable, Err: err}
}

// applyDefaults fills the extraction-owned gaps the validator leaves open.
func (e *Extractor) applyDefaults(draft *RecordDraft, freeText string, hint *ProjectHint) {
	if !draft.HasHours {
		draft.Hours = estimateHours(freeText, draft.Description)
		draft.HasHours = true
		draft.Confidence[FieldHours] = ConfidenceEstimated
	}
	if draft.WorkDate.IsZero() {
		draft.WorkDate = e.today()
		draft.Confidence[FieldWorkDate] = ConfidenceDefaulted
	}
	if hint != nil {
		if draft.Client == "" && hint.Client != "" {
			draft.Client = hint.Client
			draft.Confidence[FieldClient] = ConfidenceDefaulted
		}
		if draft.Project == "" && hint.Project != "" {
			draft.Project = hint.Project
			draft.Confidence[FieldProject] = ConfidenceDefaulted
		}
	}
}

var (
	codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	jsonObjRe   = regexp.MustCompile(`(?s)\{.*\}`)

	hoursPhraseRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	minutesRe      = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?)\b`)
	halfDayRe      = regexp.MustCompile(`(?i)\bhalf[\s-]day\b`)
	fullDayRe      = regexp.MustCompile(`(?i)\b(?:full|whole|all)[\s-]?day\b`)
)

// parsePayload parses model output as a JSON object, tolerating markdown
// fences and surrounding prose the way local models tend to answer.
func parsePayload(raw string) (map[string]interface{}, error) {
	candidate := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
		return payload, nil
	}

	if m := jsonObjRe.FindString(candidate); m != "" {
		if err := json.Unmarshal([]byte(m), &payload); err == nil {
			return payload, nil
		}
	}
	return nil, errors.New("output is not a JSON object")
}

// estimateHours derives an hours estimate when the model produced none.
// Explicit duration phrases in the source text win; otherwise the estimate
// falls back to coarse buckets by text length. The result is always flagged
// as low confidence by the caller.
func estimateHours(freeText, description string) decimal.Decimal {
	for _, text := range []string{freeText, description} {
		if m := hoursPhraseRe.FindStringSubmatch(text); m != nil {
			if hours, err := decimal.NewFromString(m[1]); err == nil && hours.IsPositive() {
				return hours
			}
		}
		if m := minutesRe.FindStringSubmatch(text); m != nil {
			if minutes, err := decimal.NewFromString(m[1]); err == nil && minutes.IsPositive() {
				return minutes.Div(decimal.NewFromInt(60)).Round(2)
			}
		}
		if fullDayRe.MatchString(text) {
			return decimal.NewFromInt(8)
		}
		if halfDayRe.MatchString(text) {
			return decimal.NewFromInt(4)
		}
	}

	words := len(strings.Fields(freeText))
	switch {
	case words < 20:
		return decimal.NewFromInt(1)
	case words < 60:
		return decimal.NewFromInt(2)
	default:
		return decimal.NewFromInt(4)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
