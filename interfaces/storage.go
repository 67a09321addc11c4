package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/dto"
)

type EmailArchive interface {
	Archive(ctx context.Context, message *dto.EmailReceived) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}
