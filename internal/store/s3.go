package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/resilience"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Source serves tables from an S3-compatible bucket. Objects are fetched
// whole under a retry policy and a circuit breaker; missing keys are
// permanent and never retried or counted against the breaker.
type S3Source struct {
	client  *s3.Client
	bucket  string
	prefix  string
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
	logger  *slog.Logger
}

// NewS3 builds an S3 source from configuration. Static credentials are used
// when both keys are set; otherwise the default AWS chain applies.
func NewS3(ctx context.Context, cfg config.S3Config, prefix string, readTimeout time.Duration, opts ...func(*s3.Options)) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, opt := range opts {
			opt(o)
		}
	})
	return newS3Source(client, cfg.Bucket, prefix, readTimeout), nil
}

func newS3Source(client *s3.Client, bucket, prefix string, readTimeout time.Duration) *S3Source {
	src := &S3Source{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: readTimeout,
		logger:  slog.Default().With("component", "s3-source", "bucket", bucket),
	}
	src.retry = resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Retryable:    func(err error) bool { return !errors.Is(err, ErrNotExist) },
	}
	src.breaker = resilience.NewCircuitBreaker("s3:"+bucket, resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure:        func(err error) bool { return !errors.Is(err, ErrNotExist) },
		OnStateChange: func(name string, to resilience.State) {
			src.logger.Warn("table source breaker changed state", "breaker", name, "state", to.String())
		},
	})
	return src
}

func (s *S3Source) key(name string) string {
	return strings.TrimPrefix(path.Join(s.prefix, name), "/")
}

// Open downloads the object fully before returning so that retries cover
// the whole transfer.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)
	body, err := resilience.Do(ctx, "s3 get "+key, s.retry, func(ctx context.Context, attempt int) ([]byte, error) {
		if attempt > 1 {
			s.logger.Debug("retrying table read", "key", key, "attempt", attempt)
		}
		return resilience.Guard(s.breaker, func() ([]byte, error) { return s.get(ctx, key) })
	})
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (s *S3Source) get(ctx context.Context, key string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Source) Exists(ctx context.Context, name string) (bool, error) {
	key := s.key(name)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}

func (s *S3Source) String() string { return "s3://" + path.Join(s.bucket, s.prefix) }

func isNotFound(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
