package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/iliyamo/account-service/internal/config"
)

// putObjectAPI is the slice of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads to an S3-compatible bucket (MinIO, AWS, R2...).
// Calls go through a circuit breaker so an unavailable host fails fast.
type S3Uploader struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	prefix    string
	cb        *gobreaker.CircuitBreaker
	log       logrus.FieldLogger
	now       func() time.Time
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader builds an uploader from cfg using static credentials and a
// path-style custom endpoint.
func NewS3Uploader(ctx context.Context, cfg config.MediaConfig, log logrus.FieldLogger) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return newS3Uploader(client, cfg.Bucket, cfg.PublicURL, log), nil
}

func newS3Uploader(client putObjectAPI, bucket, publicURL string, log logrus.FieldLogger) *S3Uploader {
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		prefix:    "media",
		cb:        NewBreaker("media-host", log),
		log:       log,
		now:       time.Now,
	}
}

// NewBreaker returns the circuit breaker used around media host calls. It
// opens once at least five requests in the window failed at a 50% ratio.
func NewBreaker(name string, log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("circuit breaker %s changed from %s to %s", name, from, to)
		},
	})
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			u.log.WithError(err).WithField("path", localPath).Warn("remove staged upload")
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, errors.Wrap(err, "open staged upload")
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	key := u.objectKey(ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.cb.Execute(func() (interface{}, error) {
		return u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType),
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "put object %s", key)
	}

	asset := &Asset{Key: key, URL: u.publicURL + "/" + key}
	u.log.WithField("url", asset.URL).Info("file uploaded")
	return asset, nil
}

func (u *S3Uploader) objectKey(ext string) string {
	d := u.now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", u.prefix, d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
}
