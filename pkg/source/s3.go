package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Object storage sentinel errors.
var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrBucketNotFound   = errors.New("bucket not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrStoreThrottled   = errors.New("request throttled")
	ErrStoreUnreachable = errors.New("object store unavailable")
)

// ObjectStore abstracts the object-storage operations discovery and file
// opening need. Implementations must be safe for concurrent use.
type ObjectStore interface {
	// ListPage returns one page of object keys under prefix. An empty
	// continuation token starts from the beginning; the returned token is
	// empty on the last page.
	ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error)

	// Get returns the object content. The caller must close the reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ListPage is one page of an object listing.
type ListPage struct {
	Objects           []ObjectInfo
	ContinuationToken string
}

// ObjectInfo is the subset of object metadata discovery uses.
type ObjectInfo struct {
	Key  string
	Size int64
}

// S3Config configures the S3-backed ObjectStore.
type S3Config struct {
	Region   string
	Endpoint string // custom endpoint for S3-compatible stores
	Profile  string

	// Explicit credentials override the SDK default chain when both set.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store implements ObjectStore on AWS S3 or S3-compatible storage using
// the SDK default credential chain.
type S3Store struct {
	client *s3.Client
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store builds an S3-backed object store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible services (moto, MinIO, etc.) require path-style URLs.
			o.UsePathStyle = true
		})
	}

	return &S3Store{client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// ListPage returns one page of objects under prefix.
func (s *S3Store) ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, wrapS3Error("ListPage", bucket, prefix, err)
	}

	page := &ListPage{Objects: make([]ObjectInfo, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
		page.ContinuationToken = *out.NextContinuationToken
	}
	return page, nil
}

// Get returns the content of one object.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error("Get", bucket, key, err)
	}
	return out.Body, nil
}

// wrapS3Error maps SDK errors to sentinel errors with request context.
func wrapS3Error(op, bucket, key string, err error) error {
	sentinel := err

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		sentinel = ErrObjectNotFound
	case errors.As(err, &noSuchBucket):
		sentinel = ErrBucketNotFound
	default:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NoSuchKey", "NotFound":
				sentinel = ErrObjectNotFound
			case "NoSuchBucket":
				sentinel = ErrBucketNotFound
			case "AccessDenied", "Forbidden":
				sentinel = ErrAccessDenied
			case "SlowDown", "Throttling", "RequestLimitExceeded":
				sentinel = ErrStoreThrottled
			case "ServiceUnavailable", "InternalError":
				sentinel = ErrStoreUnreachable
			}
		} else if strings.Contains(err.Error(), "connection refused") {
			sentinel = ErrStoreUnreachable
		}
	}

	if sentinel == err {
		return fmt.Errorf("s3 %s %s/%s: %w", op, bucket, key, err)
	}
	return fmt.Errorf("s3 %s %s/%s: %w: %v", op, bucket, key, sentinel, err)
}
