package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theognis1002/linkmark/internal/config"
)

// fakeS3 serves the handful of path-style S3 calls Snapshots makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	meta    map[string]http.Header
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, meta: map[string]http.Header{}}
}

func (f *fakeS3) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func (f *fakeS3) object(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[path]
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")

	if r.URL.Query().Has("location") {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.puts++
		meta := http.Header{}
		for k, v := range r.Header {
			if strings.HasPrefix(strings.ToLower(k), "x-amz-meta-") {
				meta[k] = v
			}
		}
		f.meta[path] = meta
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		body, ok := f.objects[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range f.meta[path] {
			w.Header()[k] = v
		}
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestSnapshots(t *testing.T, fake *fakeS3) *Snapshots {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.MinIOConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "test",
		SecretKey: "testsecret",
		Bucket:    "exports",
	}
	snaps, err := NewSnapshots(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewSnapshots() error: %v", err)
	}
	return snaps
}

func TestSnapshots_PutAndGet(t *testing.T) {
	t.Parallel()
	fake := newFakeS3()
	snaps := newTestSnapshots(t, fake)
	if !fake.hasBucket("exports") {
		t.Fatal("bucket should have been created")
	}

	html := []byte(`<a href="/sale" data-highlighted="true">Sale</a>`)
	key, err := snaps.PutSnapshot(context.Background(), "https://shop.com/sale/shoes", html)
	if err != nil {
		t.Fatalf("PutSnapshot() error: %v", err)
	}
	if key != "shop.com/sale/shoes_f7774c48.html" {
		t.Errorf("key = %q, want shop.com/sale/shoes_f7774c48.html", key)
	}
	if got := string(fake.object("exports/" + key)); got != string(html) {
		t.Errorf("stored object = %q, want %q", got, html)
	}

	got, err := snaps.GetSnapshot(context.Background(), key)
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}
	if string(got) != string(html) {
		t.Errorf("GetSnapshot() = %q, want %q", got, html)
	}
}

func TestSnapshots_SkipsUnchangedContent(t *testing.T) {
	t.Parallel()
	fake := newFakeS3()
	snaps := newTestSnapshots(t, fake)
	ctx := context.Background()

	first := []byte(`<a href="/sale" data-highlighted="true">Sale</a>`)
	if _, err := snaps.PutSnapshot(ctx, "https://shop.com/sale", first); err != nil {
		t.Fatalf("PutSnapshot() error: %v", err)
	}
	if _, err := snaps.PutSnapshot(ctx, "https://shop.com/sale", first); err != nil {
		t.Fatalf("PutSnapshot() error: %v", err)
	}
	if got := fake.putCount(); got != 1 {
		t.Errorf("puts after identical upload = %d, want 1", got)
	}

	second := []byte(`<a href="/sale">Sale</a>`)
	key, err := snaps.PutSnapshot(ctx, "https://shop.com/sale", second)
	if err != nil {
		t.Fatalf("PutSnapshot() error: %v", err)
	}
	if got := fake.putCount(); got != 2 {
		t.Errorf("puts after changed upload = %d, want 2", got)
	}
	if got := string(fake.object("exports/" + key)); got != string(second) {
		t.Errorf("stored object = %q, want %q", got, second)
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	// sha256("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := ContentHash(nil); got != want {
		t.Errorf("ContentHash(nil) = %s, want %s", got, want)
	}
	if ContentHash([]byte("a")) == ContentHash([]byte("b")) {
		t.Error("different content should hash differently")
	}
}
