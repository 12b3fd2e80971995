package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/testutil"
)

type fakeS3 struct {
	mu          sync.Mutex
	paths       []string
	contentType string
	body        []byte
	status      int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.contentType = r.Header.Get("Content-Type")
	f.body = body

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
		return
	}
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func newTestPublisher(t *testing.T, endpoint, prefix string) *Publisher {
	t.Helper()
	p, err := New(context.Background(), Config{
		Bucket:          "snapshots",
		Prefix:          prefix,
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}, testutil.TestLogger(t))
	require.NoError(t, err)
	return p
}

func TestPublish_UploadsFile(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "metadados.parquet")
	require.NoError(t, os.WriteFile(local, []byte("PAR1 fake PAR1"), 0o600))

	p := newTestPublisher(t, srv.URL, "ibge/1419")
	uri, err := p.Publish(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "s3://snapshots/ibge/1419/metadados.parquet", uri)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.paths, 1)
	assert.Equal(t, "PUT /snapshots/ibge/1419/metadados.parquet", fake.paths[0])
	assert.Equal(t, "application/vnd.apache.parquet", fake.contentType)
	assert.True(t, strings.Contains(string(fake.body), "PAR1 fake PAR1"))
}

func TestPublish_ServerError(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{status: http.StatusForbidden})
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "metadados.parquet")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o600))

	_, err := newTestPublisher(t, srv.URL, "").Publish(context.Background(), local)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePublish))
}

func TestPublish_MissingFile(t *testing.T) {
	p := newTestPublisher(t, "http://127.0.0.1:1", "")
	_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePublish))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
