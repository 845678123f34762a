package refs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
)

type fakeStore struct {
	signErr   error
	signCalls []string
}

func (f *fakeStore) CreateSignedURL(_ context.Context, bucket, path string, _ time.Duration) (string, error) {
	f.signCalls = append(f.signCalls, bucket+"/"+path)
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://store.example.com/sign/" + bucket + "/" + path, nil
}

func (f *fakeStore) PublicURL(bucket, path string) string {
	return "https://store.example.com/public/" + bucket + "/" + path
}

func newResolver(store ObjectStore) *Resolver {
	return NewResolver(store, "user-uploads", "generated-media", time.Hour, zerolog.Nop())
}

func TestClassify(t *testing.T) {
	if e := Classify("https://cdn.example.com/a.png"); e.Kind != domain.ReferenceDirectURL {
		t.Fatalf("https url classified as %q", e.Kind)
	}
	if e := Classify("u1/photo.png"); e.Kind != domain.ReferenceStorageLocator {
		t.Fatalf("bare path classified as %q", e.Kind)
	}
	if e := Classify("storage://user-uploads/u1/photo.png"); e.Kind != domain.ReferenceStorageLocator {
		t.Fatalf("locator classified as %q", e.Kind)
	}
}

func TestResolveDirectURLPassthrough(t *testing.T) {
	store := &fakeStore{}
	got := newResolver(store).Resolve(context.Background(), "u1", []domain.ReferenceEntry{
		{Kind: domain.ReferenceDirectURL, Raw: "https://cdn.example.com/a.png"},
	})
	if len(got) != 1 || got[0] != "https://cdn.example.com/a.png" {
		t.Fatalf("Resolve = %#v", got)
	}
	if len(store.signCalls) != 0 {
		t.Fatalf("direct url hit the storage service: %v", store.signCalls)
	}
}

func TestResolveSignsOwnUpload(t *testing.T) {
	store := &fakeStore{}
	got := newResolver(store).Resolve(context.Background(), "u1", []domain.ReferenceEntry{
		{Kind: domain.ReferenceStorageLocator, Raw: "storage://user-uploads/u1/photo.png"},
	})
	if len(got) != 1 || got[0] != "https://store.example.com/sign/user-uploads/u1/photo.png" {
		t.Fatalf("Resolve = %#v", got)
	}
}

func TestResolveDropsTraversalAndCrossTenant(t *testing.T) {
	store := &fakeStore{}
	got := newResolver(store).Resolve(context.Background(), "u1", []domain.ReferenceEntry{
		{Kind: domain.ReferenceStorageLocator, Raw: "../../secret"},
		{Kind: domain.ReferenceStorageLocator, Raw: "u2/photo.png"},
		{Kind: domain.ReferenceStorageLocator, Raw: "storage://private-bucket/u1/a.png"},
	})
	if len(got) != 0 {
		t.Fatalf("Resolve = %#v, want empty", got)
	}
	if len(store.signCalls) != 0 {
		t.Fatalf("rejected locator reached the storage service: %v", store.signCalls)
	}
}

func TestResolveFallsBackToPublicURL(t *testing.T) {
	store := &fakeStore{signErr: errors.New("sign unavailable")}
	got := newResolver(store).Resolve(context.Background(), "u1", []domain.ReferenceEntry{
		{Kind: domain.ReferenceStorageLocator, Raw: "u1/photo.png"},
	})
	if len(got) != 1 || got[0] != "https://store.example.com/public/user-uploads/u1/photo.png" {
		t.Fatalf("Resolve = %#v", got)
	}
}
