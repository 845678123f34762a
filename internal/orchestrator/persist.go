package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mediaforge/internal/domain"
)

// persistOutput downloads the provider's output and writes it to a
// per-caller, date-partitioned path in the output bucket. The URL handed
// back is always ours; provider delivery URLs are transient and never leave
// this function.
func (s *Service) persistOutput(ctx context.Context, userID, srcURL string) (*domain.OutputAsset, error) {
	data, contentType, err := s.store.Download(ctx, srcURL)
	if err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}
	contentType = cleanContentType(contentType)
	path := fmt.Sprintf("%s/%s/%s%s", userID, s.now().UTC().Format("2006/01/02"), uuid.NewString(), extensionFor(contentType))

	if _, err := s.store.Upload(ctx, s.outputBucket, path, data, contentType); err != nil {
		return nil, fmt.Errorf("store output: %w", err)
	}

	var url string
	if s.outputPublic {
		url = s.store.PublicURL(s.outputBucket, path)
	} else {
		url, err = s.store.CreateSignedURL(ctx, s.outputBucket, path, s.signedTTL)
		if err != nil {
			return nil, fmt.Errorf("sign output url: %w", err)
		}
	}
	return &domain.OutputAsset{
		Bucket:      s.outputBucket,
		Path:        path,
		URL:         url,
		ContentType: contentType,
	}, nil
}

func cleanContentType(raw string) string {
	ct, _, _ := strings.Cut(raw, ";")
	ct = strings.TrimSpace(strings.ToLower(ct))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
