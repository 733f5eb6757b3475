package resilience

import (
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestTransientError_WrapsInner(t *testing.T) {
	inner := eris.New("service unavailable")
	te := NewTransientError(inner, 503)

	assert.Equal(t, "service unavailable", te.Error())
	assert.Equal(t, 503, te.StatusCode)
	assert.True(t, errors.Is(te, inner))
}

func TestIsTransient_TransientError(t *testing.T) {
	te := NewTransientError(eris.New("throttled"), 429)
	assert.True(t, IsTransient(te))

	wrapped := eris.Wrap(te, "vision: classify")
	assert.True(t, IsTransient(wrapped))
}

func TestIsTransient_NilAndPermanent(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("invalid credentials")))
}

func TestIsTransient_NetTimeout(t *testing.T) {
	assert.True(t, IsTransient(timeoutErr{}))
}

func TestIsTransient_SyscallErrors(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		assert.True(t, IsTransient(errno), errno.Error())
	}
}

func TestIsTransient_MessagePatterns(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"write: broken pipe",
		"dial tcp: lookup cdn: no such host",
		"net/http: TLS handshake timeout",
		"read: i/o timeout",
	} {
		assert.True(t, IsTransient(eris.New(msg)), msg)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 409, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}

// timeoutErr implements net.Error with Timeout() true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}
