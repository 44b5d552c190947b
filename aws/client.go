// Package aws wraps the S3 bucket holding meeting recordings and
// transcripts
package aws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

const defaultPresignTTL = time.Minute * 15

var ErrForeignBucket = errors.New("object is not in the configured bucket")

type S3Client struct {
	C          *s3.Client
	Bucket     *string
	presigner  *s3.PresignClient
	presignTTL time.Duration
}

// NewS3 connects to the bucket configured under s3.* and makes sure it
// exists
func NewS3(ctx context.Context) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("s3.access_key"),
			viper.GetString("s3.secret_access_key"),
			"",
		)),
		config.WithRegion(viper.GetString("s3.region")),
	)
	if err != nil {
		return nil, err
	}

	endpoint := viper.GetString("s3.endpoint")

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	bucket := viper.GetString("s3.bucket")

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return NewWithClient(client, bucket, viper.GetDuration("s3.presign_ttl")), nil
}

// NewWithClient wraps an already configured client
func NewWithClient(client *s3.Client, bucket string, presignTTL time.Duration) *S3Client {
	if presignTTL <= 0 {
		presignTTL = defaultPresignTTL
	}

	return &S3Client{
		C:          client,
		Bucket:     aws.String(bucket),
		presigner:  s3.NewPresignClient(client),
		presignTTL: presignTTL,
	}
}

// Presign turns an s3://bucket/key URL into a temporary HTTPS link. Any
// other URL is returned unchanged.
func (c *S3Client) Presign(ctx context.Context, raw string) (string, error) {
	if !strings.HasPrefix(raw, "s3://") {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Host != *c.Bucket {
		return "", ErrForeignBucket
	}

	key := strings.TrimPrefix(u.Path, "/")

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
