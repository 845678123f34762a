package providers

import (
	"testing"

	"mediaforge/internal/domain"
)

func textRequest(model string) *domain.GenerationRequest {
	return &domain.GenerationRequest{
		Mode:        domain.ModeText2Media,
		Model:       model,
		Prompt:      "a red bicycle",
		AspectRatio: "1:1",
	}
}

func TestRouteFluxTextVariant(t *testing.T) {
	target, err := Route(textRequest("flux"), nil)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if target.Variant != VariantFluxText {
		t.Fatalf("Variant = %v, want flux-text", target.Variant)
	}
	if target.Path != "fal-ai/flux/dev" {
		t.Fatalf("Path = %q", target.Path)
	}
	if _, ok := target.Input["image_url"]; ok {
		t.Fatalf("text variant carries image_url")
	}
	if _, ok := target.Input["strength"]; ok {
		t.Fatalf("text variant carries strength")
	}
}

func TestRouteReferenceForcesImageVariant(t *testing.T) {
	req := textRequest("flux")
	strength := 0.8
	req.Strength = &strength
	target, err := Route(req, []string{"https://cdn.example.com/ref.png"})
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if target.Variant != VariantFluxImage {
		t.Fatalf("Variant = %v, want flux-image", target.Variant)
	}
	if got := target.Input["image_url"]; got != "https://cdn.example.com/ref.png" {
		t.Fatalf("image_url = %v", got)
	}
	if got := target.Input["strength"]; got != 0.8 {
		t.Fatalf("strength = %v", got)
	}
}

func TestRouteImageModeWithoutReferences(t *testing.T) {
	req := textRequest("flux")
	req.Mode = domain.ModeImage2Media
	_, err := Route(req, nil)
	re, ok := domain.AsRequestError(err)
	if !ok || re.Code != "missing_image_url" {
		t.Fatalf("Route error = %v, want missing_image_url", err)
	}
}

func TestRouteGen4RequiresReference(t *testing.T) {
	_, err := Route(textRequest("gen4"), nil)
	re, ok := domain.AsRequestError(err)
	if !ok || re.Code != "missing_reference_images" {
		t.Fatalf("Route error = %v, want missing_reference_images", err)
	}
}

func TestRouteGen4TurboRequiresReference(t *testing.T) {
	req := textRequest("gen4-turbo")
	req.Mode = domain.ModeImage2Media
	_, err := Route(req, nil)
	re, ok := domain.AsRequestError(err)
	if !ok || re.Code != "gen4_turbo_requires_reference_image" {
		t.Fatalf("Route error = %v, want gen4_turbo_requires_reference_image", err)
	}
}

func TestRouteGen4GuidanceFieldName(t *testing.T) {
	req := textRequest("gen4")
	req.AspectRatio = "16:9"
	guidance := 7.5
	req.Guidance = &guidance
	target, err := Route(req, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"})
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if target.Variant != VariantGen4 || !target.Variant.Async() {
		t.Fatalf("Variant = %v, want async gen4", target.Variant)
	}
	if got := target.Input["cfg_scale"]; got != 7.5 {
		t.Fatalf("cfg_scale = %v", got)
	}
	if _, ok := target.Input["guidance_scale"]; ok {
		t.Fatalf("gen4 carries flux guidance field")
	}
	refs, ok := target.Input["reference_images"].([]string)
	if !ok || len(refs) != 2 {
		t.Fatalf("reference_images = %v", target.Input["reference_images"])
	}
}

func TestRouteProviderPathOverrideWins(t *testing.T) {
	req := textRequest("flux")
	req.ProviderPath = "fal-ai/flux-pro/v1.1"
	target, err := Route(req, nil)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if target.Path != "fal-ai/flux-pro/v1.1" {
		t.Fatalf("Path = %q, want override", target.Path)
	}
}

func TestRouteUnknownModel(t *testing.T) {
	_, err := Route(textRequest("dall-e-9"), nil)
	re, ok := domain.AsRequestError(err)
	if !ok || re.Code != "unsupported_model" {
		t.Fatalf("Route error = %v, want unsupported_model", err)
	}
}

func TestCost(t *testing.T) {
	if got := Cost("flux", false); got != 1 {
		t.Fatalf("Cost(flux, no refs) = %d", got)
	}
	if got := Cost("flux", true); got != 2 {
		t.Fatalf("Cost(flux, refs) = %d", got)
	}
	if got := Cost("gen4", false); got != 5 {
		t.Fatalf("Cost(gen4) = %d", got)
	}
	if got := Cost("gen4_turbo", true); got != 3 {
		t.Fatalf("Cost(gen4_turbo) = %d", got)
	}
}
