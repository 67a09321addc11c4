package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/services/storage/aws_client"
)

// ArchiveService keeps a copy of every raw email handed to the bridge
type ArchiveService struct {
	client     aws_client.S3Client
	bucketName string
}

var _ interfaces.EmailArchive = (*ArchiveService)(nil)

func NewArchiveService(client aws_client.S3Client, bucketName string) *ArchiveService {
	return &ArchiveService{
		client:     client,
		bucketName: bucketName,
	}
}

// NewR2ArchiveService creates an ArchiveService backed by Cloudflare R2
func NewR2ArchiveService(accountID, accessKeyID, accessKeySecret, bucketName string) (*ArchiveService, error) {
	client, err := aws_client.NewR2Client(aws_client.R2Config{
		AccountID:       accountID,
		AccessKeyID:     accessKeyID,
		AccessKeySecret: accessKeySecret,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create R2 client")
	}
	return NewArchiveService(client, bucketName), nil
}

// Archive uploads the raw message and returns its object key
func (s *ArchiveService) Archive(ctx context.Context, message *dto.EmailReceived) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiveService.Archive")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, message.MailboxID)

	key := ArchiveKey(message)
	span.SetTag("key", key)

	err := s.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(message.Raw),
		ContentType: aws.String(rawEmailContentType),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "failed to archive %s", key)
	}

	return key, nil
}

func (s *ArchiveService) Fetch(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiveService.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("key", key)

	content, err := s.client.Download(ctx, s.bucketName, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to fetch %s", key)
	}
	return content, nil
}
