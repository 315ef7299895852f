package llm

import (
	"google.golang.org/genai"

	"github.com/PabloGalante/medibot/internal/domain"
)

var harmCategories = map[domain.HarmCategory]genai.HarmCategory{
	domain.HarmHarassment: genai.HarmCategoryHarassment,
	domain.HarmHate:       genai.HarmCategoryHateSpeech,
	domain.HarmSexual:     genai.HarmCategorySexuallyExplicit,
	domain.HarmDangerous:  genai.HarmCategoryDangerousContent,
}

var blockThresholds = map[domain.BlockThreshold]genai.HarmBlockThreshold{
	domain.BlockNone:           genai.HarmBlockThresholdBlockNone,
	domain.BlockOnlyHigh:       genai.HarmBlockThresholdBlockOnlyHigh,
	domain.BlockMediumAndAbove: genai.HarmBlockThresholdBlockMediumAndAbove,
	domain.BlockLowAndAbove:    genai.HarmBlockThresholdBlockLowAndAbove,
}

// toGenaiSafety maps domain settings onto Gemini's. Unknown categories or
// thresholds are skipped and left to the provider default.
func toGenaiSafety(in []domain.SafetySetting) []*genai.SafetySetting {
	out := make([]*genai.SafetySetting, 0, len(in))
	for _, s := range in {
		cat, ok := harmCategories[s.Category]
		if !ok {
			continue
		}
		th, ok := blockThresholds[s.Threshold]
		if !ok {
			continue
		}
		out = append(out, &genai.SafetySetting{Category: cat, Threshold: th})
	}
	return out
}
