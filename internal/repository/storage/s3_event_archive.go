package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/dafibh/bazaar/bazaar-backend/internal/config"
	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
)

const settlementContentType = "application/json"

// objectStore is the subset of the S3 client the archive uses
type objectStore interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3EventArchive stores one JSON settlement record per order in a private bucket
type S3EventArchive struct {
	client    objectStore
	presigner *s3.PresignClient
	bucket    string
}

// NewS3EventArchive creates the archive and makes sure its bucket exists
func NewS3EventArchive(ctx context.Context, s3cfg cfg.S3Config) (*S3EventArchive, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	archive := &S3EventArchive{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    s3cfg.Bucket,
	}
	if err := archive.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

// ensureBucket creates the bucket if it doesn't exist. The bucket stays private.
func (a *S3EventArchive) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Name identifies the sink in logs
func (a *S3EventArchive) Name() string {
	return "s3"
}

// Deliver writes each event to its order's object. Rewriting an object is harmless.
func (a *S3EventArchive) Deliver(ctx context.Context, events []*domain.PaymentProcessedEvent) error {
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}

		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(a.bucket),
			Key:           aws.String(ObjectKey(e)),
			Body:          bytes.NewReader(body),
			ContentType:   aws.String(settlementContentType),
			ContentLength: aws.Int64(int64(len(body))),
			Metadata: map[string]string{
				"order-id": fmt.Sprintf("%d", e.OrderID),
				"payer":    e.Payer.String(),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to upload settlement %d: %w", e.OrderID, err)
		}
	}
	return nil
}

// ReceiptURL returns a presigned GET URL for an archived settlement record
func (a *S3EventArchive) ReceiptURL(ctx context.Context, event *domain.PaymentProcessedEvent, expiry time.Duration) (string, error) {
	if a.presigner == nil {
		return "", errors.New("presigning not available")
	}
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(ObjectKey(event)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

// ObjectKey partitions records by the UTC day they settled
func ObjectKey(e *domain.PaymentProcessedEvent) string {
	day := time.Unix(e.Timestamp, 0).UTC()
	return fmt.Sprintf("settlements/%04d/%02d/%02d/%d.json", day.Year(), day.Month(), day.Day(), e.OrderID)
}
