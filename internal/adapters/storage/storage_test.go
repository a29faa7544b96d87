package storage

import (
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/metrics"
	"FlashGrade/internal/shared/retry"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

type s3Request struct {
	method      string
	path        string
	contentType string
	body        string
}

// fakeS3 records requests and answers them with handle.
type fakeS3 struct {
	mu       sync.Mutex
	requests []s3Request
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, s3Request{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		body:        string(body),
	})
	f.mu.Unlock()
	f.handle(w, r)
}

func (f *fakeS3) byMethod(method string) []s3Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []s3Request
	for _, r := range f.requests {
		if r.method == method {
			out = append(out, r)
		}
	}
	return out
}

func newTestStore(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*MinioStore, *fakeS3, *metrics.Metrics) {
	t.Helper()
	fake := &fakeS3{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	nopLogger := zerolog.Nop()
	m := metrics.NewUnregistered()
	store, err := NewMinioStore(config.StorageConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	}, testPolicy, m, &nopLogger)
	require.NoError(t, err)
	return store, fake, m
}

func TestMinioStore_Put(t *testing.T) {
	store, fake, m := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})

	path, err := store.Put(context.Background(), "payment-proofs", "4242/ME-ABCD1234_1700000000.jpg", "image/jpeg", strings.NewReader("receipt bytes"), 13)

	require.NoError(t, err)
	assert.Equal(t, "payment-proofs/4242/ME-ABCD1234_1700000000.jpg", path)
	puts := fake.byMethod(http.MethodPut)
	require.Len(t, puts, 1)
	assert.Equal(t, "/payment-proofs/4242/ME-ABCD1234_1700000000.jpg", puts[0].path)
	assert.Equal(t, "image/jpeg", puts[0].contentType)
	assert.Contains(t, puts[0].body, "receipt bytes")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboundRequests.WithLabelValues("storage", "ok")))
}

func TestMinioStore_PutAccessDeniedIsNotRetried(t *testing.T) {
	store, fake, m := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied.</Message></Error>`)
	})

	_, err := store.Put(context.Background(), "order-instructions", "instruction_1_2.pdf", "application/pdf", strings.NewReader("x"), 1)

	require.Error(t, err)
	assert.Len(t, fake.byMethod(http.MethodPut), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboundRequests.WithLabelValues("storage", "403")))
}

func TestMinioStore_EnsureBucketsCreatesMissing(t *testing.T) {
	store, fake, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && strings.HasPrefix(r.URL.Path, "/order-instructions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, store.EnsureBuckets(context.Background(), "order-instructions", "payment-proofs"))

	puts := fake.byMethod(http.MethodPut)
	require.Len(t, puts, 1)
	assert.Contains(t, puts[0].path, "order-instructions")
}

func TestHTTPFetcher(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		switch {
		case r.URL.Path == "/missing":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/flaky" && n == 1:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-1.4")
		}
	}))
	defer srv.Close()

	nopLogger := zerolog.Nop()
	f := NewHTTPFetcher(srv.Client(), testPolicy, &nopLogger)

	t.Run("retries server errors", func(t *testing.T) {
		file, err := f.Fetch(context.Background(), srv.URL+"/flaky")
		require.NoError(t, err)
		defer file.Body.Close()
		body, err := io.ReadAll(file.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(body))
		assert.Equal(t, "application/pdf", file.ContentType)
		assert.Equal(t, int64(8), file.Size)
	})

	t.Run("not found is final", func(t *testing.T) {
		mu.Lock()
		before := calls
		mu.Unlock()
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
		mu.Lock()
		assert.Equal(t, before+1, calls)
		mu.Unlock()
	})
}
