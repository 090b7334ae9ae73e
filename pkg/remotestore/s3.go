package remotestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config points the store at a bucket. Directories map to key prefixes.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type s3Connector struct {
	cfg S3Config
}

// NewS3Connector returns a connector for an S3 (or S3-compatible) bucket.
func NewS3Connector(cfg S3Config) Connector {
	return &s3Connector{cfg: cfg}
}

func (c *s3Connector) Driver() string {
	return DriverS3
}

func (c *s3Connector) Connect(ctx context.Context) (Session, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if c.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.cfg.Region))
	}
	if c.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.cfg.AccessKeyID, c.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.cfg.Endpoint)
		}
		o.UsePathStyle = c.cfg.UsePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s is not reachable: %w", c.cfg.Bucket, err)
	}

	return &s3Session{
		bucket:     c.cfg.Bucket,
		client:     client,
		downloader: manager.NewDownloader(client),
	}, nil
}

type s3Session struct {
	bucket     string
	client     *s3.Client
	downloader *manager.Downloader
}

func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}

func (s *s3Session) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix := objectKey(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				entries = append(entries, Entry{Name: name, IsDir: true})
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			entries = append(entries, Entry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return entries, nil
}

func (s *s3Session) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
		}
		return nil, fmt.Errorf("failed to download %s: %w", p, err)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Mkdir is a no-op: prefixes exist as soon as an object is written under them.
func (s *s3Session) Mkdir(context.Context, string) error {
	return nil
}

func (s *s3Session) Remove(ctx context.Context, p string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

func (s *s3Session) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource(s.bucket, objectKey(oldPath))),
		Key:        aws.String(objectKey(newPath)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%s: %w", oldPath, ErrNotExist)
		}
		return fmt.Errorf("failed to copy %s to %s: %w", oldPath, newPath, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(oldPath)),
	}); err != nil {
		return fmt.Errorf("copied %s but failed to delete source: %w", oldPath, err)
	}
	return nil
}

func (s *s3Session) Close() error {
	return nil
}

func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
