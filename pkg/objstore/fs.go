package objstore

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// FSStore implements Store on a local directory. It backs tests and the
// single-machine deployment mode where "remote" is another disk.
type FSStore struct {
	root    string
	baseURL string
}

// NewFS creates an FSStore rooted at dir. baseURL is prepended to keys
// to form public URLs.
func NewFS(dir, baseURL string) *FSStore {
	return &FSStore{root: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (f *FSStore) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FSStore) PublicURL(key string) string {
	return f.baseURL + "/" + key
}

func (f *FSStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	dst := f.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", eris.Wrapf(err, "objstore: mkdir for %s", key)
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", eris.Wrapf(err, "objstore: write %s", key)
	}
	return f.PublicURL(key), nil
}

func (f *FSStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(f.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eris.Wrapf(err, "objstore: stat %s", key)
}

func (f *FSStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "objstore: remove %s", key)
	}
	return nil
}

func (f *FSStore) SignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = time.Hour
	}
	// No real signing for the filesystem store; encode the expiry so
	// callers get the same URL shape as S3.
	q := url.Values{}
	q.Set("expires", time.Now().UTC().Add(expires).Format(time.RFC3339))
	return f.PublicURL(key) + "?" + q.Encode(), nil
}
