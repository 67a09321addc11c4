package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/services/events"
)

// ReceiveEmailListener drains the receive-email queue into the relay submitter. It must be
// the only consumer of the queue so emails reach the ledger in the order they were polled.
type ReceiveEmailListener struct {
	events.BaseEventListener
	submitter interfaces.Submitter
	archive   interfaces.EmailArchive
	publisher interfaces.EventPublisher
}

func NewReceiveEmailListener(
	logger logger.Logger, submitter interfaces.Submitter, archive interfaces.EmailArchive, publisher interfaces.EventPublisher,
) *ReceiveEmailListener {
	return &ReceiveEmailListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.EmailReceived](), // subscribed event
			events.QueueReceiveEmail,                 // listening on Direct queue
		),
		submitter: submitter,
		archive:   archive,
		publisher: publisher,
	}
}

var _ interfaces.EventListener = (*ReceiveEmailListener)(nil)

func (l *ReceiveEmailListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReceiveEmailListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagEntity(span, validatedEvent.Event.EntityId)

	email, err := events.DecodeEventData[dto.EmailReceived](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagMailbox(span, email.MailboxID)

	if l.archive != nil && email.ArchiveKey == "" {
		key, err := l.archive.Archive(ctx, &email)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		email.ArchiveKey = key
	}

	response, err := l.submitter.SubmitEmail(ctx, &email)
	if err != nil {
		if errors.Is(err, mailbridge_errors.ErrMalformedEmail) {
			l.Logger.Warnf("Dropping %s: %v", validatedEvent.Event.EntityId, err)
			return nil
		}
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagTxHash(span, response.TxHash)

	submitted := &dto.EmailSubmitted{
		Source:     email.Source,
		MailboxID:  email.MailboxID,
		Folder:     email.Folder,
		ImapUID:    email.ImapUID,
		ArchiveKey: email.ArchiveKey,
		TxHash:     response.TxHash,
		Nonce:      response.Nonce,
	}
	// the transaction is already on the ledger; redelivery would submit it twice
	if err = l.publisher.PublishFanoutEvent(ctx, response.TxHash, enum.TRANSACTION, submitted); err != nil {
		tracing.TraceErr(span, err)
		l.Logger.Errorf("Failed to publish submission event for %s: %v", response.TxHash, err)
	}

	return nil
}
