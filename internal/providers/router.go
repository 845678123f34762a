package providers

import (
	"strings"

	"mediaforge/internal/domain"
)

// family groups variants that share a logical model name, a ratio
// enumeration and a credit cost.
type family struct {
	imageVariant Variant
	textPath     string
	imagePath    string
	ratios       map[string]bool
	defaultRatio string
	textCost     int
	imageCost    int
}

var families = map[string]family{
	"flux": {
		imageVariant: VariantFluxImage,
		textPath:     "fal-ai/flux/dev",
		imagePath:    "fal-ai/flux/dev/image-to-image",
		ratios:       ratioSet("1:1", "16:9", "9:16", "4:3", "3:4"),
		defaultRatio: "1:1",
		textCost:     1,
		imageCost:    2,
	},
	"gen4": {
		imageVariant: VariantGen4,
		imagePath:    "runwayml/gen4_image",
		ratios:       ratioSet("16:9", "9:16", "1:1", "4:3", "3:4", "21:9"),
		defaultRatio: "16:9",
		imageCost:    5,
	},
	"gen4-turbo": {
		imageVariant: VariantGen4Turbo,
		imagePath:    "runwayml/gen4_image_turbo",
		ratios:       ratioSet("16:9", "9:16", "1:1", "4:3", "3:4", "21:9"),
		defaultRatio: "16:9",
		imageCost:    3,
	},
}

// DefaultModel is used when the caller declares no logical model.
const DefaultModel = "flux"

func ratioSet(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func lookupFamily(model string) (family, bool) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		name = DefaultModel
	}
	name = strings.ReplaceAll(name, "_", "-")
	f, ok := families[name]
	return f, ok
}

// SupportedRatio reports whether the model's family accepts the aspect ratio.
func SupportedRatio(model, ratio string) bool {
	f, ok := lookupFamily(model)
	if !ok {
		return false
	}
	return f.ratios[ratio]
}

// DefaultRatio is the safe fallback ratio for the model's family.
func DefaultRatio(model string) string {
	f, ok := lookupFamily(model)
	if !ok {
		return families[DefaultModel].defaultRatio
	}
	return f.defaultRatio
}

// Cost returns the credit price of one generation for the model, before the
// variant is known. Reservation happens before routing, so the price keys off
// the logical model: reference-conditioned families always bill their image
// cost, the flux family bills its image cost only when references were sent.
func Cost(model string, hasReferences bool) int {
	f, ok := lookupFamily(model)
	if !ok {
		return 1
	}
	if f.textPath != "" && !hasReferences {
		return f.textCost
	}
	return f.imageCost
}

// Route selects the provider variant for a normalized request and builds its
// input payload from the resolved reference URLs. It is a pure function: no
// remote calls, all missing-reference conditions fail here.
func Route(req *domain.GenerationRequest, refURLs []string) (*Target, error) {
	f, ok := lookupFamily(req.Model)
	if !ok {
		return nil, domain.BadRequest("unsupported_model", "unknown model "+req.Model)
	}

	switch f.imageVariant {
	case VariantFluxImage:
		return routeFlux(f, req, refURLs)
	case VariantGen4Turbo:
		if len(refURLs) == 0 {
			return nil, domain.BadRequest("gen4_turbo_requires_reference_image", "gen4-turbo requires at least one reference image")
		}
		return gen4Target(f, req, refURLs), nil
	default:
		if len(refURLs) == 0 {
			return nil, domain.BadRequest("missing_reference_images", "model requires at least one resolved reference image")
		}
		return gen4Target(f, req, refURLs), nil
	}
}

// routeFlux picks between the text and image variants of the default
// provider. One or more resolved references force the image variant even for
// a text-mode request; none force the text variant, unless the caller asked
// for image conditioning, which cannot proceed without an image.
func routeFlux(f family, req *domain.GenerationRequest, refURLs []string) (*Target, error) {
	if len(refURLs) == 0 {
		if req.Mode == domain.ModeImage2Media {
			return nil, domain.BadRequest("missing_image_url", "image mode requires at least one resolved reference image")
		}
		return &Target{
			Variant: VariantFluxText,
			Path:    pathOverride(req, f.textPath),
			Cost:    f.textCost,
			Input:   fluxTextInput(req),
		}, nil
	}
	return &Target{
		Variant: VariantFluxImage,
		Path:    pathOverride(req, f.imagePath),
		Cost:    f.imageCost,
		Input:   fluxImageInput(req, refURLs[0]),
	}, nil
}

func gen4Target(f family, req *domain.GenerationRequest, refURLs []string) *Target {
	variant := f.imageVariant
	return &Target{
		Variant: variant,
		Path:    pathOverride(req, f.imagePath),
		Cost:    f.imageCost,
		Input:   gen4Input(req, refURLs),
	}
}

func pathOverride(req *domain.GenerationRequest, fallback string) string {
	if req.ProviderPath != "" {
		return req.ProviderPath
	}
	return fallback
}

// Each input shaper emits only the fields its variant accepts. Guidance is
// translated to the field name the target expects; strength never reaches a
// pure text variant.

func fluxTextInput(req *domain.GenerationRequest) map[string]any {
	input := map[string]any{
		"prompt":       req.Prompt,
		"aspect_ratio": req.AspectRatio,
	}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	}
	if req.Guidance != nil {
		input["guidance_scale"] = *req.Guidance
	}
	return input
}

func fluxImageInput(req *domain.GenerationRequest, imageURL string) map[string]any {
	input := fluxTextInput(req)
	input["image_url"] = imageURL
	if req.Strength != nil {
		input["strength"] = *req.Strength
	}
	return input
}

func gen4Input(req *domain.GenerationRequest, refURLs []string) map[string]any {
	input := map[string]any{
		"prompt_text":      req.Prompt,
		"reference_images": refURLs,
		"ratio":            req.AspectRatio,
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	}
	if req.Guidance != nil {
		input["cfg_scale"] = *req.Guidance
	}
	return input
}
