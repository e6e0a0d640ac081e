package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Backend maps each bucket name to <prefix><bucket> in S3.
type S3Backend struct {
	client   *s3.Client
	prefix   string
	endpoint string
	region   string
}

type S3Options struct {
	Region       string
	Endpoint     string // set for S3-compatible stores such as MinIO
	BucketPrefix string
}

func NewS3Backend(ctx context.Context, opts S3Options) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Backend{
		client:   client,
		prefix:   opts.BucketPrefix,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		region:   opts.Region,
	}, nil
}

func (b *S3Backend) bucket(name string) string { return b.prefix + name }

func (b *S3Backend) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket(bucket)),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	return errors.Wrapf(err, "s3 put %s/%s", bucket, key)
}

func (b *S3Backend) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket(bucket)),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "s3 delete %s/%s", bucket, key)
}

func (b *S3Backend) URL(bucket, key string) string {
	if b.endpoint != "" {
		return b.endpoint + "/" + b.bucket(bucket) + "/" + key
	}
	return "https://" + b.bucket(bucket) + ".s3." + b.region + ".amazonaws.com/" + key
}
