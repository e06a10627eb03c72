// Package backup writes a consistent snapshot of the store to a local file,
// an S3 bucket, or a presigned upload URL.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/kosync/internal/filex"
	"github.com/dmitrijs2005/kosync/internal/netx"
	"github.com/dmitrijs2005/kosync/internal/server/config"
	"github.com/google/uuid"
)

// Snapshotter writes a consistent copy of the store to w.
type Snapshotter interface {
	Backup(ctx context.Context, w io.Writer) (int64, error)
}

type Kind int

const (
	KindFile Kind = iota
	KindS3
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindS3:
		return "s3"
	case KindURL:
		return "url"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Target is a parsed backup destination.
type Target struct {
	Kind Kind
	// Path is the local file for KindFile.
	Path string
	// Bucket and Key locate the object for KindS3. An empty Key is replaced
	// by a generated one.
	Bucket string
	Key    string
	// URL is the presigned PUT URL for KindURL.
	URL string
}

func (t Target) String() string {
	switch t.Kind {
	case KindS3:
		return "s3://" + t.Bucket + "/" + t.Key
	case KindURL:
		u, err := url.Parse(t.URL)
		if err != nil {
			return "url"
		}
		// the query carries the signature
		u.RawQuery = ""
		return u.String()
	}
	return t.Path
}

// ParseTarget accepts s3://[bucket][/key], http(s)://presigned-url, or a
// filesystem path. An S3 target without a bucket uses the configured one.
func ParseTarget(raw string) (Target, error) {
	switch {
	case raw == "":
		return Target{}, fmt.Errorf("empty backup target")
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, key, _ := strings.Cut(rest, "/")
		return Target{Kind: KindS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		if _, err := url.Parse(raw); err != nil {
			return Target{}, fmt.Errorf("backup target: %w", err)
		}
		return Target{Kind: KindURL, URL: raw}, nil
	default:
		return Target{Kind: KindFile, Path: raw}, nil
	}
}

// GenerateStorageKey returns a date-partitioned object key for a backup taken
// at d.
func GenerateStorageKey(d time.Time) string {
	return path.Join("kosync", fmt.Sprintf("%d/%02d/%02d", d.Year(), d.Month(), d.Day()), uuid.New().String()+".db")
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	uploadToPresignedURL = netx.UploadToPresignedURL
	now                  = time.Now
)

// Result describes a finished backup.
type Result struct {
	Target Target
	Bytes  int64
}

// Run snapshots src into target. S3 uploads are signed with the static
// credentials and endpoint from cfg.
func Run(ctx context.Context, src Snapshotter, target Target, cfg *config.Config) (Result, error) {
	switch target.Kind {
	case KindFile:
		n, err := toFile(ctx, src, target.Path)
		return Result{Target: target, Bytes: n}, err
	case KindS3:
		if target.Bucket == "" && cfg != nil {
			target.Bucket = cfg.S3Bucket
		}
		if target.Bucket == "" {
			return Result{Target: target}, fmt.Errorf("s3 backup requires a bucket in the target or s3_bucket")
		}
		if target.Key == "" {
			target.Key = GenerateStorageKey(now())
		}
		u, err := presignPut(ctx, cfg, target.Bucket, target.Key)
		if err != nil {
			return Result{Target: target}, err
		}
		n, err := toURL(ctx, src, u)
		return Result{Target: target, Bytes: n}, err
	case KindURL:
		n, err := toURL(ctx, src, target.URL)
		return Result{Target: target, Bytes: n}, err
	}
	return Result{}, fmt.Errorf("unsupported backup target %v", target.Kind)
}

// toFile streams the snapshot straight into the destination file.
func toFile(ctx context.Context, src Snapshotter, dst string) (int64, error) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := src.Backup(ctx, pw)
		_ = pw.CloseWithError(err)
	}()

	n, err := filex.WriteFileAtomic(dst, pr)
	_ = pr.CloseWithError(err)
	// the snapshot holds a read transaction until it returns
	<-done
	if err != nil {
		return n, fmt.Errorf("backup to %s: %w", dst, err)
	}
	return n, nil
}

func toURL(ctx context.Context, src Snapshotter, u string) (int64, error) {
	var buf bytes.Buffer
	n, err := src.Backup(ctx, &buf)
	if err != nil {
		return n, err
	}
	if err := uploadToPresignedURL(ctx, u, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("upload backup: %w", err)
	}
	return n, nil
}

func presignPut(ctx context.Context, cfg *config.Config, bucket, key string) (string, error) {
	if !cfg.HasS3Credentials() {
		return "", fmt.Errorf("s3 backup requires s3_root_user and s3_root_password")
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return "", fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	req, err := presignPutObject(newS3PresignClient(client), ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/octet-stream"),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}
