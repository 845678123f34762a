package domain

// Mode distinguishes prompt-only generation from reference-conditioned generation.
type Mode string

const (
	ModeText2Media  Mode = "text2media"
	ModeImage2Media Mode = "image2media"
)

// ReferenceKind classifies a client-supplied reference image.
type ReferenceKind string

const (
	ReferenceDirectURL      ReferenceKind = "direct-url"
	ReferenceStorageLocator ReferenceKind = "storage-locator"
)

// ReferenceEntry is a raw conditioning-image reference as supplied by the
// client, before resolution into a provider-consumable URL.
type ReferenceEntry struct {
	Kind ReferenceKind
	Raw  string
}

// GenerationRequest is the canonical, validated form of an inbound generation
// call. It is owned by the request lifecycle and discarded after the response.
type GenerationRequest struct {
	Mode           Mode
	Model          string
	ProviderPath   string
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Seed           *int64
	Guidance       *float64
	Strength       *float64
	References     []ReferenceEntry
	UserID         string
}
