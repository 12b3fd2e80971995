package logger

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	snaperrors "github.com/ajitpratap0/metasnap/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json", Config{Level: "debug", Encoding: "json"}, false},
		{"development", Config{Level: "warn", Development: true}, false},
		{"bad level", Config{Level: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestGet_DefaultsWhenUninitialized(t *testing.T) {
	assert.NotNil(t, Get())
	assert.NotNil(t, With(zap.String("component", "test")))
}

func TestErrorFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	err := snaperrors.New(snaperrors.ErrorTypeWrite, "disk full").WithDetail("path", "out.parquet")
	l.Error("write failed", ErrorFields(err)...)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "write", ctx["error_type"])
	assert.Equal(t, "out.parquet", ctx["path"])
	assert.Contains(t, ctx["trace"], "TestErrorFields")
}

func TestErrorFields_PlainError(t *testing.T) {
	fields := ErrorFields(io.EOF)
	assert.Len(t, fields, 1)
}
