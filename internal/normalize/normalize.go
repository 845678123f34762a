// Package normalize derives the canonical generation request from a raw
// client payload. Every violation becomes a structured 4xx result; nothing
// here panics or reaches an external service.
package normalize

import (
	"math"
	"strings"

	"mediaforge/internal/domain"
	"mediaforge/internal/providers"
	"mediaforge/internal/refs"
)

// MaxReferences bounds the reference list; extra entries are dropped.
const MaxReferences = 3

// RawRequest is the inbound JSON payload before validation. Numeric fields
// are pointers so absent and zero are distinguishable.
type RawRequest struct {
	Mode            string   `json:"mode"`
	Model           string   `json:"model"`
	ProviderPath    string   `json:"provider_path"`
	Prompt          string   `json:"prompt"`
	NegativePrompt  string   `json:"negative_prompt"`
	AspectRatio     string   `json:"aspect_ratio"`
	Seed            *float64 `json:"seed"`
	Guidance        *float64 `json:"guidance"`
	Strength        *float64 `json:"strength"`
	ReferenceImages []string `json:"reference_images"`
}

// Normalize validates raw and produces the canonical request. The caller
// identity is attached by the orchestrator afterwards.
func Normalize(raw RawRequest) (*domain.GenerationRequest, error) {
	mode, err := normalizeMode(raw.Mode)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(raw.Prompt)
	if mode == domain.ModeText2Media && prompt == "" {
		return nil, domain.BadRequest("missing_prompt", "prompt is required for text generation")
	}

	model := strings.TrimSpace(raw.Model)
	ratio, err := normalizeRatio(raw.AspectRatio, model)
	if err != nil {
		return nil, err
	}

	req := &domain.GenerationRequest{
		Mode:           mode,
		Model:          model,
		ProviderPath:   strings.TrimSpace(raw.ProviderPath),
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(raw.NegativePrompt),
		AspectRatio:    ratio,
		Seed:           normalizeSeed(raw.Seed),
		Guidance:       normalizeFinite(raw.Guidance),
		Strength:       normalizeFinite(raw.Strength),
		References:     normalizeReferences(raw.ReferenceImages),
	}
	return req, nil
}

func normalizeMode(raw string) (domain.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text2media", "text2img", "text2image", "text2video", "txt2img":
		return domain.ModeText2Media, nil
	case "image2media", "img2img", "image2image", "img2video", "image2video":
		return domain.ModeImage2Media, nil
	default:
		return "", domain.BadRequest("invalid_mode", "mode must be a text2media or image2media variant")
	}
}

// normalizeRatio clamps the aspect ratio to the model family's enumeration,
// falling back to the family default when the value is absent or merely
// unsupported. Only a syntactically broken ratio is an error.
func normalizeRatio(raw, model string) (string, error) {
	ratio := strings.TrimSpace(raw)
	if ratio == "" {
		return providers.DefaultRatio(model), nil
	}
	w, h, ok := strings.Cut(ratio, ":")
	if !ok || !allDigits(w) || !allDigits(h) {
		return "", domain.BadRequest("invalid_aspect_ratio", "aspect ratio must look like 16:9")
	}
	if !providers.SupportedRatio(model, ratio) {
		return providers.DefaultRatio(model), nil
	}
	return ratio, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeSeed accepts a non-negative finite number and truncates it to an
// integer; anything else leaves the seed undefined so the provider picks one.
// Values at or above 2^63 would not survive the int64 conversion, so they are
// undefined too.
func normalizeSeed(raw *float64) *int64 {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) || *raw < 0 || *raw >= math.MaxInt64 {
		return nil
	}
	seed := int64(*raw)
	return &seed
}

func normalizeFinite(raw *float64) *float64 {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return nil
	}
	v := *raw
	return &v
}

func normalizeReferences(raws []string) []domain.ReferenceEntry {
	out := make([]domain.ReferenceEntry, 0, MaxReferences)
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		out = append(out, refs.Classify(raw))
		if len(out) == MaxReferences {
			break
		}
	}
	return out
}
