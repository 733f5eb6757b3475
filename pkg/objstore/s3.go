package objstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/asimorth/competitor-lens/internal/resilience"
)

// cacheControl marks uploaded screenshots as immutable for a year;
// changed bytes get a new key via the hash suffix.
const cacheControl = "public, max-age=31536000"

// S3Options configures the S3-compatible client.
type S3Options struct {
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, R2). Empty means virtual-hosted AWS addressing.
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// CDNURL, when set, is used to build public URLs instead of the
	// direct bucket URL.
	CDNURL string

	HTTPClient *http.Client
}

// S3Store implements Store against the S3 REST API with SigV4 signing.
type S3Store struct {
	opts   S3Options
	client *http.Client
	now    func() time.Time
}

// NewS3 creates an S3Store.
func NewS3(opts S3Options) *S3Store {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &S3Store{opts: opts, client: client, now: time.Now}
}

func (s *S3Store) baseURL() string {
	if s.opts.Endpoint != "" {
		return strings.TrimSuffix(s.opts.Endpoint, "/") + "/" + s.opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.opts.Bucket, s.opts.Region)
}

// PublicURL returns the CDN URL when configured, else the direct bucket URL.
func (s *S3Store) PublicURL(key string) string {
	if s.opts.CDNURL != "" {
		return strings.TrimSuffix(s.opts.CDNURL, "/") + "/" + key
	}
	return s.baseURL() + "/" + key
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL()+"/"+key, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrapf(err, "objstore: create PUT %s", key)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", cacheControl)
	req.Header.Set("X-Amz-Acl", "public-read")

	resp, err := s.do(req, body)
	if err != nil {
		return "", eris.Wrapf(err, "objstore: PUT %s", key)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", s.statusError("PUT", key, resp)
	}
	return s.PublicURL(key), nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL()+"/"+key, nil)
	if err != nil {
		return false, eris.Wrapf(err, "objstore: create HEAD %s", key)
	}

	resp, err := s.do(req, nil)
	if err != nil {
		return false, eris.Wrapf(err, "objstore: HEAD %s", key)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, s.statusError("HEAD", key, resp)
	}
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL()+"/"+key, nil)
	if err != nil {
		return eris.Wrapf(err, "objstore: create DELETE %s", key)
	}

	resp, err := s.do(req, nil)
	if err != nil {
		return eris.Wrapf(err, "objstore: DELETE %s", key)
	}
	defer resp.Body.Close() //nolint:errcheck

	// S3 returns 204 for deletes, including of missing objects.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return s.statusError("DELETE", key, resp)
	}
	return nil
}

// SignedURL builds a presigned GET URL valid for the given duration.
func (s *S3Store) SignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = time.Hour
	}

	u, err := url.Parse(s.baseURL() + "/" + key)
	if err != nil {
		return "", eris.Wrapf(err, "objstore: parse url for %s", key)
	}

	now := s.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	scope := now.Format("20060102") + "/" + s.opts.Region + "/s3/aws4_request"

	q := url.Values{}
	q.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA256")
	q.Set("X-Amz-Credential", s.opts.AccessKey+"/"+scope)
	q.Set("X-Amz-Date", amzDate)
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(expires.Seconds())))
	q.Set("X-Amz-SignedHeaders", "host")

	canonical := strings.Join([]string{
		http.MethodGet,
		u.EscapedPath(),
		q.Encode(),
		"host:" + u.Host + "\n",
		"host",
		"UNSIGNED-PAYLOAD",
	}, "\n")

	q.Set("X-Amz-Signature", s.sign(canonical, now, scope))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do signs the request with SigV4 and executes it.
func (s *S3Store) do(req *http.Request, body []byte) (*http.Response, error) {
	now := s.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	scope := now.Format("20060102") + "/" + s.opts.Region + "/s3/aws4_request"

	payloadHash := sha256.Sum256(body)
	payloadHex := hex.EncodeToString(payloadHash[:])

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHex)

	signedHeaders, canonicalHeaders := canonicalizeHeaders(req)
	canonical := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.Query().Encode(),
		canonicalHeaders,
		signedHeaders,
		payloadHex,
	}, "\n")

	auth := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.opts.AccessKey, scope, signedHeaders, s.sign(canonical, now, scope),
	)
	req.Header.Set("Authorization", auth)

	return s.client.Do(req)
}

func (s *S3Store) sign(canonicalRequest string, now time.Time, scope string) string {
	reqHash := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		now.Format("20060102T150405Z"),
		scope,
		hex.EncodeToString(reqHash[:]),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+s.opts.SecretKey), now.Format("20060102"))
	key = hmacSHA256(key, s.opts.Region)
	key = hmacSHA256(key, "s3")
	key = hmacSHA256(key, "aws4_request")
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// canonicalizeHeaders returns the signed-headers list and the canonical
// header block for the request's host and x-amz-* headers.
func canonicalizeHeaders(req *http.Request) (string, string) {
	names := []string{"host"}
	values := map[string]string{"host": req.URL.Host}
	for name, vals := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-amz-") {
			names = append(names, lower)
			values[lower] = strings.TrimSpace(vals[0])
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteString(":")
		sb.WriteString(values[n])
		sb.WriteString("\n")
	}
	return strings.Join(names, ";"), sb.String()
}

// statusError converts a non-success response into an error, flagging
// retryable statuses as transient for the retry layer.
func (s *S3Store) statusError(method, key string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := eris.Errorf("objstore: %s %s returned %d: %s", method, key, resp.StatusCode, string(snippet))
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}
