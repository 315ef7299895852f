package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

// FallbackText replaces the analysis when generation fails.
const FallbackText = "Unable to generate analysis."

// SafetySettings turns off all four provider content filters for the report
// request.
var SafetySettings = []domain.SafetySetting{
	{Category: domain.HarmHarassment, Threshold: domain.BlockNone},
	{Category: domain.HarmHate, Threshold: domain.BlockNone},
	{Category: domain.HarmSexual, Threshold: domain.BlockNone},
	{Category: domain.HarmDangerous, Threshold: domain.BlockNone},
}

// Requester sends a completed record to the text generator.
type Requester struct {
	gen domain.TextGenerator
	now func() time.Time
}

func NewRequester(gen domain.TextGenerator) *Requester {
	return &Requester{
		gen: gen,
		now: time.Now,
	}
}

// Generate calls the text generator exactly once for a complete record.
//
// On failure it still returns a usable result holding FallbackText, together
// with an error wrapping domain.ErrAnalysisUnavailable for display.
func (q *Requester) Generate(ctx context.Context, rec domain.PatientRecord) (domain.AnalysisResult, error) {
	if !rec.Complete() {
		return domain.AnalysisResult{}, domain.ErrRecordIncomplete
	}

	log := observability.LoggerFromContext(ctx).With("model", q.gen.Model())
	prompt := BuildPrompt(rec)

	start := q.now()
	text, err := q.gen.Generate(ctx, prompt, SafetySettings)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		log.Error("analysis generation failed", "error", err)
		return domain.AnalysisResult{
			Text:        FallbackText,
			Available:   false,
			Model:       q.gen.Model(),
			GeneratedAt: q.now(),
		}, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}

	log.Info("analysis generated",
		"elapsed_ms", q.now().Sub(start).Milliseconds(),
		"chars", len(text))

	return domain.AnalysisResult{
		Text:        text,
		Available:   true,
		Model:       q.gen.Model(),
		GeneratedAt: q.now(),
	}, nil
}
