package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
)

type fakeS3Client struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3Client) Upload(ctx context.Context, input s3manager.UploadInput) error {
	if f.err != nil {
		return f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return err
	}
	key := aws.StringValue(input.Bucket) + "/" + aws.StringValue(input.Key)
	f.objects[key] = body
	f.types[key] = aws.StringValue(input.ContentType)
	return nil
}

func (f *fakeS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	content, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return content, nil
}

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		name    string
		message dto.EmailReceived
		want    string
	}{
		{
			name:    "inbox",
			message: dto.EmailReceived{Source: enum.EmailImportIMAP, MailboxID: "mbox_1", Folder: "INBOX", ImapUID: 42},
			want:    "raw/mbox_1/INBOX/42.eml",
		},
		{
			name:    "nested folder",
			message: dto.EmailReceived{Source: enum.EmailImportIMAP, MailboxID: "mbox_1", Folder: "[Gmail]/All Mail", ImapUID: 7},
			want:    "raw/mbox_1/%5BGmail%5D%2FAll%20Mail/7.eml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArchiveKey(&tt.message))
		})
	}

	apiKey := ArchiveKey(&dto.EmailReceived{Source: enum.EmailImportAPI})
	assert.True(t, strings.HasPrefix(apiKey, "raw/api/eml_"), apiKey)
	assert.True(t, strings.HasSuffix(apiKey, ".eml"), apiKey)
}

func TestArchiveService_ArchiveAndFetch(t *testing.T) {
	// Arrange
	client := newFakeS3Client()
	service := NewArchiveService(client, "raw-emails")
	message := &dto.EmailReceived{
		Source:    enum.EmailImportIMAP,
		MailboxID: "mbox_1",
		Folder:    "INBOX",
		ImapUID:   3,
		Raw:       []byte("Subject: init\r\n\r\n"),
	}

	// Act
	key, err := service.Archive(context.Background(), message)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "raw/mbox_1/INBOX/3.eml", key)
	assert.Equal(t, "message/rfc822", client.types["raw-emails/"+key])

	content, err := service.Fetch(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, message.Raw, content)
}

func TestArchiveService_UploadFailure(t *testing.T) {
	// Arrange
	client := newFakeS3Client()
	client.err = errors.New("access denied")
	service := NewArchiveService(client, "raw-emails")

	// Act
	key, err := service.Archive(context.Background(), &dto.EmailReceived{Source: enum.EmailImportIMAP, MailboxID: "m", Folder: "INBOX", ImapUID: 1})

	// Assert
	assert.Empty(t, key)
	assert.ErrorContains(t, err, "access denied")
}
