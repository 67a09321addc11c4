package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

type relaySubmissionRepository struct {
	db *gorm.DB
}

func NewRelaySubmissionRepository(db *gorm.DB) interfaces.RelaySubmissionRepository {
	return &relaySubmissionRepository{db: db}
}

func (r *relaySubmissionRepository) Create(ctx context.Context, submission *models.RelaySubmission) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySubmissionRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTxHash(span, submission.TxHash)

	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to create relay submission")
	}
	return nil
}

func (r *relaySubmissionRepository) GetByTxHash(ctx context.Context, txHash string) (*models.RelaySubmission, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySubmissionRepository.GetByTxHash")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTxHash(span, txHash)

	var submission models.RelaySubmission
	err := r.db.WithContext(ctx).First(&submission, "tx_hash = ?", txHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get relay submission")
	}
	return &submission, nil
}

func (r *relaySubmissionRepository) ListRecent(ctx context.Context, limit int) ([]*models.RelaySubmission, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "relaySubmissionRepository.ListRecent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var submissions []*models.RelaySubmission
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&submissions).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list relay submissions")
	}
	return submissions, nil
}
