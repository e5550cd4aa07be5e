// Package storage provides the S3-backed transcript archive. Raw meeting
// transcripts are large and append-only, so they live in object storage
// rather than the knowledge store; clients up- and download them through
// presigned URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/parley-hq/parley/internal/domain"
)

// ArchiveConfig holds configuration for the transcript archive
type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// TranscriptArchive stores raw meeting transcripts in S3-compatible storage
type TranscriptArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	uploadURLExpiry   time.Duration
	downloadURLExpiry time.Duration
}

// NewTranscriptArchive creates a new TranscriptArchive with the given configuration
func NewTranscriptArchive(ctx context.Context, cfg ArchiveConfig) (*TranscriptArchive, error) {
	// Custom resolver for S3-compatible endpoints (MinIO and friends)
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &TranscriptArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		uploadURLExpiry:   15 * time.Minute,
		downloadURLExpiry: 1 * time.Hour,
	}, nil
}

// transcriptKey maps a meeting ID to its object key
func transcriptKey(meetingID string) string {
	return fmt.Sprintf("transcripts/%s.txt", meetingID)
}

// UploadURL creates a presigned URL for uploading a meeting transcript
func (a *TranscriptArchive) UploadURL(ctx context.Context, meetingID string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(transcriptKey(meetingID)),
		ContentType: aws.String("text/plain; charset=utf-8"),
	}

	presignedReq, err := a.presignClient.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = a.uploadURLExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return presignedReq.URL, nil
}

// DownloadURL creates a presigned URL for downloading a meeting transcript.
// Returns domain.ErrTranscriptNotFound if no transcript has been archived
// for the meeting.
func (a *TranscriptArchive) DownloadURL(ctx context.Context, meetingID string) (string, error) {
	key := transcriptKey(meetingID)

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return "", domain.ErrTranscriptNotFound
		}
		return "", fmt.Errorf("failed to check transcript: %w", err)
	}

	presignedReq, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = a.downloadURLExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presignedReq.URL, nil
}

// Delete removes an archived transcript
func (a *TranscriptArchive) Delete(ctx context.Context, meetingID string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(transcriptKey(meetingID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	return nil
}

// EnsureBucket creates the archive bucket if it doesn't exist
func (a *TranscriptArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
