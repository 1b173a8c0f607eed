// Package media prepares ChMS thumbnails for WordPress: fetch, scale
// down to a sane size, and cache the result in S3 so repeated syncs
// and forced resyncs do not hammer the vendor's image host.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
	"github.com/cpconnect/chms-sync/internal/pkg/logger"

	"golang.org/x/image/draw"
)

// Config holds thumbnail sizing and the S3 cache settings. An empty
// bucket disables caching.
type Config struct {
	MaxWidth  int      `yaml:"max_width"`
	MaxHeight int      `yaml:"max_height"`
	S3        S3Config `yaml:"s3"`
}

// S3Config points the cache at a bucket. Endpoint is for S3-compatible
// stores like MinIO; leave it empty for AWS.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

const (
	defaultMaxWidth  = 1200
	defaultMaxHeight = 1200
)

// objectStore is the slice of the S3 API the processor uses.
type objectStore interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Processor implements the sink's Thumbnails contract.
type Processor struct {
	httpClient httpretry.HTTPDoer
	store      objectStore
	bucket     string
	maxWidth   int
	maxHeight  int
}

// NewProcessor creates a thumbnail processor. store may be nil to run
// without the S3 cache.
func NewProcessor(cfg Config, store objectStore) *Processor {
	maxWidth := cfg.MaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	maxHeight := cfg.MaxHeight
	if maxHeight <= 0 {
		maxHeight = defaultMaxHeight
	}
	return &Processor{
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: 60 * time.Second}, 3),
		store:      store,
		bucket:     cfg.S3.Bucket,
		maxWidth:   maxWidth,
		maxHeight:  maxHeight,
	}
}

// NewS3Client builds an S3 client from the cache settings. Returns nil
// when no bucket is configured.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (p *Processor) SetHTTPClient(client httpretry.HTTPDoer) {
	p.httpClient = client
}

// Prepare returns a sideload-ready JPEG for the source URL, served
// from the S3 cache when the same URL was processed before.
func (p *Processor) Prepare(ctx context.Context, sourceURL string) (string, string, []byte, error) {
	key := cacheKey(sourceURL)

	if cached, ok := p.cacheGet(ctx, key); ok {
		return key, "image/jpeg", cached, nil
	}

	data, err := p.fetch(ctx, sourceURL)
	if err != nil {
		return "", "", nil, err
	}

	resized, err := p.resize(data)
	if err != nil {
		return "", "", nil, fmt.Errorf("process image %s: %w", sourceURL, err)
	}

	p.cachePut(ctx, key, resized)
	return key, "image/jpeg", resized, nil
}

func (p *Processor) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image %s: status %d", sourceURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// resize decodes, scales down anything larger than the configured
// bounds (never up), and re-encodes as JPEG.
func (p *Processor) resize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := 1.0
	if width > p.maxWidth {
		scale = float64(p.maxWidth) / float64(width)
	}
	if height > p.maxHeight {
		if s := float64(p.maxHeight) / float64(height); s < scale {
			scale = s
		}
	}

	if scale < 1.0 {
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Processor) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if p.store == nil || p.bucket == "" {
		return nil, false
	}
	out, err := p.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, false
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (p *Processor) cachePut(ctx context.Context, key string, data []byte) {
	if p.store == nil || p.bucket == "" {
		return
	}
	_, err := p.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		// Cache misses are cheap; the next run just refetches.
		logger.Warn("thumbnail cache write failed", "key", key, "error", err.Error())
	}
}

func cacheKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:]) + ".jpg"
}
