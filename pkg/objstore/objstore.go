// Package objstore provides remote object storage for screenshot bytes.
package objstore

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"
)

// Store defines the object storage operations used by the sync engine.
type Store interface {
	// Put uploads bytes with the given content type and returns the
	// object's public URL.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)

	// Exists checks whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-boxed URL for temporary private access.
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// PublicURL returns the permanent public URL for a key.
	PublicURL(key string) string
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9-]`)

// sanitize lowercases a display name into a key-safe segment.
func sanitize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// Key derives a deterministic object key from a screenshot's competitor,
// feature and filename. The suffix disambiguates files with the same
// name; callers pass a short content-hash prefix so re-deriving the key
// for unchanged bytes yields the same path.
//
// Format: screenshots/{competitor}/{feature}/{name}-{suffix}{ext}
func Key(competitor, feature, filename, suffix string) string {
	if feature == "" {
		feature = "uncategorized"
	}
	ext := path.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	return "screenshots/" + sanitize(competitor) + "/" + sanitize(feature) + "/" + sanitize(name) + "-" + suffix + strings.ToLower(ext)
}
