// Package refs turns client-supplied image references into provider-consumable
// URLs while keeping tenants inside their own storage prefixes.
package refs

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/storage"
)

// ObjectStore is the slice of the storage client the resolver needs.
type ObjectStore interface {
	CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
	PublicURL(bucket, path string) string
}

// Resolver resolves reference entries against the object store. Only
// whitelisted buckets are reachable; the shared upload bucket additionally
// requires the caller's own tenant prefix.
type Resolver struct {
	store        ObjectStore
	uploadBucket string
	outputBucket string
	signedTTL    time.Duration
	log          zerolog.Logger
}

// NewResolver builds a Resolver over the given store and bucket whitelist.
func NewResolver(store ObjectStore, uploadBucket, outputBucket string, signedTTL time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		store:        store,
		uploadBucket: uploadBucket,
		outputBucket: outputBucket,
		signedTTL:    signedTTL,
		log:          log,
	}
}

// Classify decides whether a raw reference is a direct URL or a storage locator.
func Classify(raw string) domain.ReferenceEntry {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return domain.ReferenceEntry{Kind: domain.ReferenceDirectURL, Raw: trimmed}
	}
	return domain.ReferenceEntry{Kind: domain.ReferenceStorageLocator, Raw: trimmed}
}

// Resolve maps each entry to a URL the provider can fetch. Direct URLs pass
// through unchanged. Storage locators are sanitized, tenant-checked and
// exchanged for a short-lived signed URL, with the public URL as fallback.
// Entries that cannot be resolved are dropped, not treated as errors; whether
// zero resolved references is fatal is the router's call.
func (r *Resolver) Resolve(ctx context.Context, userID string, entries []domain.ReferenceEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch entry.Kind {
		case domain.ReferenceDirectURL:
			if entry.Raw != "" {
				out = append(out, entry.Raw)
			}
		case domain.ReferenceStorageLocator:
			url, err := r.resolveLocator(ctx, userID, entry.Raw)
			if err != nil {
				r.log.Warn().Err(err).Str("user_id", userID).Msg("reference dropped")
				continue
			}
			out = append(out, url)
		}
	}
	return out
}

func (r *Resolver) resolveLocator(ctx context.Context, userID, raw string) (string, error) {
	bucket, path := splitLocator(raw, r.uploadBucket)
	if bucket != r.uploadBucket && bucket != r.outputBucket {
		return "", domain.BadRequest("bucket_not_allowed", "bucket is not resolvable")
	}
	clean, err := storage.SanitizePath(path)
	if err != nil {
		return "", err
	}
	if bucket == r.uploadBucket {
		if err := storage.EnforceTenantPrefix(clean, userID); err != nil {
			return "", err
		}
	}
	signed, err := r.store.CreateSignedURL(ctx, bucket, clean, r.signedTTL)
	if err == nil {
		return signed, nil
	}
	r.log.Debug().Err(err).Str("bucket", bucket).Msg("signed url failed, falling back to public url")
	if public := r.store.PublicURL(bucket, clean); public != "" {
		return public, nil
	}
	return "", err
}

// splitLocator decomposes "storage://bucket/path" into its parts. A bare
// "path" with no scheme is treated as living in the shared upload bucket.
func splitLocator(raw, defaultBucket string) (string, string) {
	if rest, ok := strings.CutPrefix(raw, "storage://"); ok {
		if bucket, path, found := strings.Cut(rest, "/"); found {
			return bucket, path
		}
		return rest, ""
	}
	return defaultBucket, raw
}
