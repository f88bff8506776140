package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oshokin/catpoint/internal/config"
)

const keyTimeLayout = "2006/01/02/150405.000000000"

// ErrEmptyImage is returned when there is nothing to upload.
var ErrEmptyImage = errors.New("empty image")

// Uploader is the subset of the S3 upload manager used by the archive.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 uploads images to a bucket under a key prefix.
type S3 struct {
	uploader Uploader
	bucket   string
	prefix   string
	now      func() time.Time
}

// NewS3 builds an archive from settings. Static credentials are used when
// an access key is configured, otherwise the default AWS chain applies.
func NewS3(ctx context.Context, cfg config.ArchiveConfig) (*S3, error) {
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

	return NewS3WithUploader(manager.NewUploader(s3.NewFromConfig(awsCfg)), cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithUploader builds an archive around an existing uploader.
func NewS3WithUploader(uploader Uploader, bucket, prefix string) *S3 {
	return &S3{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		now:      time.Now,
	}
}

// Archive uploads the image under a time-based key and returns the key.
func (a *S3) Archive(ctx context.Context, image []byte) (string, error) {
	key := a.key(image)

	if err := a.Upload(ctx, key, image); err != nil {
		return "", err
	}

	return key, nil
}

// Upload stores the image under key.
func (a *S3) Upload(ctx context.Context, key string, image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(http.DetectContentType(image)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	return nil
}

func (a *S3) key(image []byte) string {
	name := a.now().UTC().Format(keyTimeLayout) + extension(http.DetectContentType(image))

	return path.Join(a.prefix, name)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".bin"
	}
}
