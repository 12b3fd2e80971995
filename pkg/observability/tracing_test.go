package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ajitpratap0/metasnap/pkg/errors"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig())
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "noop")
	EndSpan(span, nil)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultTracingConfig()
	config.Enabled = true
	config.Output = &buf

	shutdown, err := InitTracing(context.Background(), config)
	require.NoError(t, err)

	ctx, run := StartSpan(context.Background(), "snapshot.run", attribute.String("url", "http://example"))
	_, fetch := StartSpan(ctx, "snapshot.fetch")
	EndSpan(fetch, errors.New(errors.ErrorTypeTimeout, "deadline"))
	EndSpan(run, nil)

	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "snapshot.run")
	assert.Contains(t, out, "snapshot.fetch")
	assert.Contains(t, out, "timeout")
	assert.Contains(t, out, "metasnap")

	// A second shutdown is a no-op.
	assert.NoError(t, Shutdown(context.Background()))
}
