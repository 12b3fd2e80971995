package pipeline

import (
	"context"
	"net/http"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/metasnap/pkg/config"
	"github.com/ajitpratap0/metasnap/pkg/document"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/flatten"
	"github.com/ajitpratap0/metasnap/pkg/formats/columnar"
	"github.com/ajitpratap0/metasnap/pkg/metrics"
	"github.com/ajitpratap0/metasnap/pkg/models"
	"github.com/ajitpratap0/metasnap/pkg/testutil"
)

type stubFetcher struct {
	doc   *document.Value
	err   error
	calls int
}

func (s *stubFetcher) FetchDocument(ctx context.Context, url string) (*document.Value, error) {
	s.calls++
	return s.doc, s.err
}

type countingFlattener struct {
	inner Flattener
	calls int
}

func (c *countingFlattener) Flatten(doc *document.Value) (*models.Table, error) {
	c.calls++
	return c.inner.Flatten(doc)
}

type stubWriter struct {
	err     error
	calls   int
	written *models.Table
}

func (s *stubWriter) Write(ctx context.Context, table *models.Table) error {
	s.calls++
	s.written = table
	return s.err
}

func (s *stubWriter) Path() string { return "stub.parquet" }

type stubPublisher struct {
	err   error
	calls int
}

func (s *stubPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "s3://bucket/" + localPath, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func mustParse(t *testing.T, s string) *document.Value {
	t.Helper()
	v, err := document.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestRun_StubbedStages(t *testing.T) {
	tests := []struct {
		name         string
		fetcher      *stubFetcher
		writerErr    error
		publisherErr error
		want         Outcome
		flattens     int
		writes       int
		publishes    int
	}{
		{
			name:      "success",
			fetcher:   &stubFetcher{doc: mustParse(t, `{"a": 1, "b": "x"}`)},
			want:      OutcomeSucceeded,
			flattens:  1,
			writes:    1,
			publishes: 1,
		},
		{
			name:    "fetch timeout stops everything",
			fetcher: &stubFetcher{err: errors.New(errors.ErrorTypeTimeout, "deadline exceeded")},
			want:    OutcomeFetchFailed,
		},
		{
			name:     "array document",
			fetcher:  &stubFetcher{doc: mustParse(t, `[{"a": 1}]`)},
			want:     OutcomeFlattenFailed,
			flattens: 1,
		},
		{
			name:     "empty object",
			fetcher:  &stubFetcher{doc: mustParse(t, `{}`)},
			want:     OutcomeEmptyResult,
			flattens: 1,
		},
		{
			name:      "write failure",
			fetcher:   &stubFetcher{doc: mustParse(t, `{"a": 1}`)},
			writerErr: errors.New(errors.ErrorTypeWrite, "disk full"),
			want:      OutcomeWriteFailed,
			flattens:  1,
			writes:    1,
		},
		{
			name:         "publish failure",
			fetcher:      &stubFetcher{doc: mustParse(t, `{"a": 1}`)},
			publisherErr: errors.New(errors.ErrorTypePublish, "denied"),
			want:         OutcomePublishFailed,
			flattens:     1,
			writes:       1,
			publishes:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := testutil.TestLogger(t)
			flattener := &countingFlattener{inner: flatten.New(log)}
			writer := &stubWriter{err: tt.writerErr}
			publisher := &stubPublisher{err: tt.publisherErr}

			p := NewSnapshotPipeline("http://example.test/meta", tt.fetcher, flattener, writer, log,
				WithPublisher(publisher))
			result := p.Run(context.Background())

			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, tt.want == OutcomeSucceeded, result.OK())
			assert.Equal(t, 1, tt.fetcher.calls)
			assert.Equal(t, tt.flattens, flattener.calls)
			assert.Equal(t, tt.writes, writer.calls)
			assert.Equal(t, tt.publishes, publisher.calls)

			if result.OK() {
				assert.NoError(t, result.Err)
				assert.Equal(t, 0, result.ExitCode())
				assert.Equal(t, "s3://bucket/stub.parquet", result.PublishedURI)
			} else {
				assert.Error(t, result.Err)
				assert.Equal(t, 1, result.ExitCode())
			}
		})
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	p := NewSnapshotPipeline("http://example.test",
		&stubFetcher{err: errors.New(errors.ErrorTypeConnection, "refused")},
		flatten.New(nil), &stubWriter{}, testutil.TestLogger(t),
		WithMetrics(collector))

	result := p.Run(context.Background())
	require.Equal(t, OutcomeFetchFailed, result.Outcome)
	assert.Same(t, collector, p.Metrics())

	n, err := promtestutil.GatherAndCount(collector.Registry(), "metasnap_runs_total", "metasnap_stage_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClose(t *testing.T) {
	closed := 0
	p := NewSnapshotPipeline("", &stubFetcher{}, flatten.New(nil), &stubWriter{}, nil,
		WithCloser(closerFunc(func() error { closed++; return nil })),
		WithCloser(closerFunc(func() error { closed++; return assert.AnError })))

	assert.ErrorIs(t, p.Close(), assert.AnError)
	assert.Equal(t, 2, closed)
}

func buildForServer(t *testing.T, url string, mutate func(*config.Config)) (*SnapshotPipeline, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Source.URL = url
	cfg.Output.Path = testutil.TempPath(t, "metadados.parquet")
	if mutate != nil {
		mutate(cfg)
	}

	p, err := Build(context.Background(), cfg, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, cfg.Output.Path
}

func readSnapshot(t *testing.T, path string) *models.Table {
	t.Helper()
	table, err := columnar.ReadTable(path, columnar.Parquet, "Chave", "Valor")
	require.NoError(t, err)
	return table
}

func TestEndToEnd_ScalarObject(t *testing.T) {
	srv := testutil.JSONServer(t, http.StatusOK, `{"a": 1, "b": "x"}`)
	p, path := buildForServer(t, srv.URL, nil)

	result := p.Run(context.Background())
	require.True(t, result.OK(), "outcome %s: %v", result.Outcome, result.Err)
	assert.Equal(t, 2, result.Rows)

	table := readSnapshot(t, path)
	assert.Equal(t, []models.Row{{Key: "a", Value: "1"}, {Key: "b", Value: "x"}}, table.Rows)
}

func TestEndToEnd_NestedArray(t *testing.T) {
	srv := testutil.JSONServer(t, http.StatusOK, `{"a": [1,2,3]}`)
	p, path := buildForServer(t, srv.URL, nil)

	result := p.Run(context.Background())
	require.True(t, result.OK())

	table := readSnapshot(t, path)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", table.Rows[0].Value)
}

func TestEndToEnd_EmptyObjectWritesNothing(t *testing.T) {
	srv := testutil.JSONServer(t, http.StatusOK, `{}`)
	p, path := buildForServer(t, srv.URL, nil)

	result := p.Run(context.Background())
	assert.Equal(t, OutcomeEmptyResult, result.Outcome)
	assert.False(t, result.OK())
	testutil.RequireNoFile(t, path)
}

func TestEndToEnd_Timeout(t *testing.T) {
	srv := testutil.SlowServer(t, 5*time.Second, `{"a": 1}`)
	p, path := buildForServer(t, srv.URL, func(c *config.Config) {
		c.Source.Timeout = 100 * time.Millisecond
	})

	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFetchFailed, result.Outcome)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeTimeout))
	testutil.RequireNoFile(t, path)
}

func TestEndToEnd_ArrayBody(t *testing.T) {
	srv := testutil.JSONServer(t, http.StatusOK, `[{"id": 1}, {"id": 2}]`)
	p, path := buildForServer(t, srv.URL, nil)

	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFlattenFailed, result.Outcome)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeShape))
	testutil.RequireNoFile(t, path)
}

func TestEndToEnd_HTTPError(t *testing.T) {
	srv := testutil.JSONServer(t, http.StatusServiceUnavailable, `{"message": "down"}`)
	p, path := buildForServer(t, srv.URL, nil)

	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFetchFailed, result.Outcome)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeHTTPStatus))
	testutil.RequireNoFile(t, path)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "csv"

	_, err := Build(context.Background(), cfg, testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestWriterConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "arrow"
	cfg.Output.Compression = "zstd"

	wc, err := WriterConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, columnar.Arrow, wc.Format)
	assert.Equal(t, "zstd", wc.Compression)
	assert.Equal(t, "Chave", wc.KeyColumn)
	assert.Equal(t, "Valor", wc.ValueColumn)
}

func TestBuild_DefaultPathFollowsFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "arrow"

	p, err := Build(context.Background(), cfg, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	assert.Equal(t, "metadados.arrow", cfg.Output.Path)
}

func TestS3Config(t *testing.T) {
	pc := config.PublishConfig{
		Target:          "s3",
		Bucket:          "snapshots",
		Prefix:          "ibge",
		Region:          "sa-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}

	sc := S3Config(pc)
	assert.Equal(t, "snapshots", sc.Bucket)
	assert.Equal(t, "ibge", sc.Prefix)
	assert.Equal(t, "sa-east-1", sc.Region)
	assert.Equal(t, "http://localhost:9000", sc.Endpoint)
	assert.Equal(t, "AKIDEXAMPLE", sc.AccessKeyID)
	assert.Equal(t, "secret", sc.SecretAccessKey)
}
