package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/waloy/waloy/internal/ports"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// Config addresses one S3-compatible bucket.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Store implements ports.ObjectStore against an S3-compatible bucket. Keys
// passed to its methods are used verbatim as S3 object keys; the caller
// (the engine) owns the "{prefix}/..." layout.
type Store struct {
	bucket string
	client *s3.S3
}

// New constructs a Store. When cfg.Endpoint is set the client is forced
// into path-style addressing, since bucket-named virtual hosts don't
// resolve against a custom endpoint.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}

	awsConfig := aws.NewConfig().WithCredentialsChainVerboseErrors(true)

	if cfg.Region != "" {
		awsConfig = awsConfig.WithRegion(cfg.Region)
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsConfig = awsConfig.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	} else {
		awsConfig = awsConfig.WithHTTPClient(&http.Client{
			Transport: &http.Transport{DisableCompression: true},
		})
	}

	sess, err := session.NewSessionWithOptions(session.Options{})
	if err != nil {
		return nil, fmt.Errorf("objectstore: constructing AWS session: %w", err)
	}

	return &Store{
		bucket: cfg.Bucket,
		client: s3.New(sess, awsConfig),
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytesReadSeeker(body),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]ports.ObjectStoreItem, error) {
	var items []ports.ObjectStoreItem
	var listErr error

	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			if strings.HasSuffix(aws.StringValue(obj.Key), "/") {
				continue
			}
			items = append(items, ports.ObjectStoreItem{
				Key:          aws.StringValue(obj.Key),
				Size:         aws.Int64Value(obj.Size),
				LastModified: obj.LastModified.UnixMilli(),
			})
		}
		return true
	})
	if listErr != nil {
		return nil, listErr
	}
	if err != nil {
		return nil, fmt.Errorf("objectstore: list %s: %w", prefix, err)
	}
	return items, nil
}

// IsNotFound reports whether err represents a missing key or bucket,
// distinguishing "key never existed" from a transport failure worth
// retrying.
func IsNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode() == http.StatusNotFound
	}
	return false
}

func bytesReadSeeker(b []byte) io.ReadSeeker {
	return io.NewSectionReader(byteReaderAt(b), 0, int64(len(b)))
}

// byteReaderAt adapts a []byte to io.ReaderAt so it can back an
// io.SectionReader, matching how the SDK expects a seekable request body.
type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, fmt.Errorf("objectstore: ReadAt offset %d out of range", off)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
