package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &notFoundErr{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.puts++
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "NoSuchKey" }

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newTestProcessor serves imageData from a test server and returns the
// processor, the image URL, and a counter of origin fetches.
func newTestProcessor(t *testing.T, cfg Config, store objectStore, imageData []byte) (*Processor, string, *int) {
	t.Helper()
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageData)
	}))
	t.Cleanup(server.Close)

	cfg.S3.Bucket = "thumbs"
	p := NewProcessor(cfg, store)
	p.SetHTTPClient(server.Client())
	return p, server.URL + "/event.png", &fetches
}

func TestPrepare_ResizesOversizedImage(t *testing.T) {
	p, url, _ := newTestProcessor(t, Config{MaxWidth: 100, MaxHeight: 100}, newMemStore(), pngBytes(t, 400, 200))

	name, contentType, data, err := p.Prepare(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.NotEmpty(t, name)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPrepare_NeverUpscales(t *testing.T) {
	p, url, _ := newTestProcessor(t, Config{MaxWidth: 1000, MaxHeight: 1000}, newMemStore(), pngBytes(t, 40, 30))

	_, _, data, err := p.Prepare(context.Background(), url)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestPrepare_SecondCallHitsCache(t *testing.T) {
	store := newMemStore()
	p, url, fetches := newTestProcessor(t, Config{}, store, pngBytes(t, 10, 10))

	_, _, first, err := p.Prepare(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 1, *fetches)
	assert.Equal(t, 1, store.puts)

	_, _, second, err := p.Prepare(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 1, *fetches, "cache hit must not refetch")
	assert.Equal(t, first, second)
}

func TestPrepare_NoStoreStillWorks(t *testing.T) {
	p, url, _ := newTestProcessor(t, Config{}, nil, pngBytes(t, 10, 10))

	_, contentType, data, err := p.Prepare(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.NotEmpty(t, data)
}

func TestPrepare_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewProcessor(Config{}, nil)
	p.SetHTTPClient(server.Client())

	_, _, _, err := p.Prepare(context.Background(), server.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
