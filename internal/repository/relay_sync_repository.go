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

type relaySyncRepository struct {
	db *gorm.DB
}

func NewRelaySyncRepository(db *gorm.DB) interfaces.RelaySyncRepository {
	return &relaySyncRepository{db: db}
}

// GetSyncState returns nil when the folder has never been synced.
func (r *relaySyncRepository) GetSyncState(ctx context.Context, mailboxID, folderName string) (*models.RelaySyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySyncRepository.GetSyncState")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagMailbox(span, mailboxID)

	var state models.RelaySyncState
	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND folder_name = ?", mailboxID, folderName).
		First(&state)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get sync state")
	}

	return &state, nil
}

// SaveSyncState upserts the high-water mark of a mailbox folder.
func (r *relaySyncRepository) SaveSyncState(ctx context.Context, state *models.RelaySyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySyncRepository.SaveSyncState")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagMailbox(span, state.MailboxID)

	state.LastSync = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.RelaySyncState{}).
		Where("mailbox_id = ? AND folder_name = ?", state.MailboxID, state.FolderName).
		Updates(map[string]interface{}{
			"last_uid":     state.LastUID,
			"uid_validity": state.UIDValidity,
			"last_sync":    state.LastSync,
			"updated_at":   time.Now(),
		})

	if result.Error == nil && result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to save sync state")
	}

	return nil
}

func (r *relaySyncRepository) GetMailboxSyncStates(ctx context.Context, mailboxID string) (map[string]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySyncRepository.GetMailboxSyncStates")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagMailbox(span, mailboxID)

	var states []models.RelaySyncState
	if err := r.db.WithContext(ctx).Where("mailbox_id = ?", mailboxID).Find(&states).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get mailbox sync states")
	}

	result := make(map[string]uint32, len(states))
	for _, state := range states {
		result[state.FolderName] = state.LastUID
	}

	return result, nil
}
