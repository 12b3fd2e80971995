package errors

import (
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CapturesStack(t *testing.T) {
	err := New(ErrorTypeWrite, "disk full")

	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNew_CapturesStack")
	assert.Contains(t, err.StackTrace(), "errors_test.go")
}

func TestWrap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeWrite, "ignored"))
	})

	t.Run("plain error", func(t *testing.T) {
		err := Wrap(io.EOF, ErrorTypeDecode, "empty body")
		assert.True(t, stderrors.Is(err, io.EOF))
		assert.Equal(t, "decode: empty body: EOF", err.Error())
		assert.NotEmpty(t, err.Stack)
	})

	t.Run("preserves inner stack", func(t *testing.T) {
		inner := New(ErrorTypeConnection, "refused")
		outer := Wrap(inner, ErrorTypeTimeout, "fetch failed")
		assert.Equal(t, inner.Stack, outer.Stack)
		assert.True(t, IsType(outer, ErrorTypeTimeout))
	})
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"structured", New(ErrorTypeShape, "x"), ErrorTypeShape},
		{"wrapped", Wrap(New(ErrorTypeShape, "x"), ErrorTypeSerialization, "y"), ErrorTypeSerialization},
		{"plain", io.EOF, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeHTTPStatus, "unexpected status").
		WithDetail("status_code", 502).
		WithDetail("url", "http://example.org")

	assert.Equal(t, 502, err.Details["status_code"])
	assert.True(t, strings.HasPrefix(err.Error(), "http_status"))
	assert.True(t, IsRetryable(err))
}
