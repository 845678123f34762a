package storage

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyPath        = errors.New("storage: empty path")
	ErrTraversalSegment = errors.New("storage: traversal segment in path")
	ErrTenantViolation  = errors.New("storage: path outside tenant prefix")
)

// stripMarks decomposes to NFKD and removes combining marks, folding
// diacritics to their ASCII base ("résumé" -> "resume").
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizePath normalizes each segment of a client-supplied object path and
// rejects anything that could escape the storage root. Segments that become
// empty, ".", or ".." after sanitation are rejected rather than dropped, so a
// traversal attempt never silently collapses into a valid path.
func SanitizePath(path string) (string, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return "", ErrEmptyPath
	}
	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrTraversalSegment
		}
		clean := sanitizeSegment(seg)
		if clean == "" || clean == "." || clean == ".." {
			return "", ErrTraversalSegment
		}
		out = append(out, clean)
	}
	return strings.Join(out, "/"), nil
}

// EnforceTenantPrefix verifies that a sanitized path lives under the caller's
// own prefix in the shared upload bucket.
func EnforceTenantPrefix(path, userID string) error {
	if userID == "" {
		return ErrTenantViolation
	}
	if path != userID && !strings.HasPrefix(path, userID+"/") {
		return ErrTenantViolation
	}
	return nil
}

func sanitizeSegment(seg string) string {
	folded, _, err := transform.String(stripMarks, seg)
	if err != nil {
		folded = seg
	}
	var b strings.Builder
	lastDash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '.', r == '-':
			// keep separators but collapse runs so "..", "--" cannot form
			if !lastDash {
				b.WriteRune(r)
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteByte('-')
			}
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-.")
}
