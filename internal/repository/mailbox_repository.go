package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

type mailboxRepository struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) interfaces.MailboxRepository {
	return &mailboxRepository{db: db}
}

func (r *mailboxRepository) GetMailboxes(ctx context.Context) ([]*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetMailboxes")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var mailboxes []*models.Mailbox
	result := r.db.WithContext(ctx).Where("enabled = ?", true).Order("created_at").Find(&mailboxes)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}
	return mailboxes, nil
}

func (r *mailboxRepository) GetMailbox(ctx context.Context, id string) (*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetMailbox")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &mailbox, nil
}

func (r *mailboxRepository) GetMailboxByAddress(ctx context.Context, emailAddress string) (*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetMailboxByAddress")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "email_address = ?", emailAddress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &mailbox, nil
}

func (r *mailboxRepository) SaveMailbox(ctx context.Context, mailbox *models.Mailbox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.SaveMailbox")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if err := r.db.WithContext(ctx).Save(mailbox).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save mailbox")
	}
	return nil
}

func (r *mailboxRepository) UpdateSyncStatus(ctx context.Context, id, status, errorMessage string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.UpdateSyncStatus")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":   status,
			"error_message": errorMessage,
			"last_synced":   &now,
			"updated_at":    now,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to update mailbox sync status")
	}
	return nil
}

func (r *mailboxRepository) DeleteMailbox(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.DeleteMailbox")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	return r.db.WithContext(ctx).Delete(&models.Mailbox{}, "id = ?", id).Error
}
