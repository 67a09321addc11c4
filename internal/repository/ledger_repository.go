package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) interfaces.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	var account models.Account
	err := r.db.WithContext(ctx).First(&account, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get account")
	}
	return &account, nil
}

func (r *ledgerRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.SaveAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, account.AccountID)

	account.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save account")
	}
	return nil
}

func (r *ledgerRepository) GetAccessKey(ctx context.Context, accountID, publicKey string) (*models.AccessKey, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetAccessKey")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	var key models.AccessKey
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND public_key = ?", accountID, publicKey).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get access key")
	}
	return &key, nil
}

func (r *ledgerRepository) GetAccessKeys(ctx context.Context, accountID string) ([]*models.AccessKey, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetAccessKeys")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	var keys []*models.AccessKey
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at").Find(&keys).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get access keys")
	}
	return keys, nil
}

func (r *ledgerRepository) SaveAccessKey(ctx context.Context, key *models.AccessKey) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.SaveAccessKey")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, key.AccountID)

	key.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "public_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"nonce", "permission", "updated_at"}),
		}).
		Create(key).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save access key")
	}
	return nil
}

func (r *ledgerRepository) DeleteAccessKey(ctx context.Context, accountID, publicKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.DeleteAccessKey")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND public_key = ?", accountID, publicKey).
		Delete(&models.AccessKey{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to delete access key")
	}
	return nil
}

func (r *ledgerRepository) SaveOutcome(ctx context.Context, outcome *models.ExecutionOutcome) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.SaveOutcome")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTxHash(span, outcome.TxHash)

	if err := r.db.WithContext(ctx).Save(outcome).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save execution outcome")
	}
	return nil
}

func (r *ledgerRepository) GetOutcome(ctx context.Context, id string) (*models.ExecutionOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetOutcome")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	var outcome models.ExecutionOutcome
	err := r.db.WithContext(ctx).First(&outcome, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get execution outcome")
	}
	return &outcome, nil
}

func (r *ledgerRepository) GetOutcomesByTx(ctx context.Context, txHash string) ([]*models.ExecutionOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetOutcomesByTx")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTxHash(span, txHash)

	var outcomes []*models.ExecutionOutcome
	err := r.db.WithContext(ctx).
		Where("tx_hash = ?", txHash).
		Order("block_height, created_at").
		Find(&outcomes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get execution outcomes")
	}
	return outcomes, nil
}

func (r *ledgerRepository) SaveBlock(ctx context.Context, block *models.Block) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.SaveBlock")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save block")
	}
	return nil
}

func (r *ledgerRepository) GetLatestBlock(ctx context.Context) (*models.Block, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerRepository.GetLatestBlock")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var block models.Block
	err := r.db.WithContext(ctx).Order("height desc").First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get latest block")
	}
	return &block, nil
}

func (r *ledgerRepository) WithTransaction(ctx context.Context, fn func(repo interfaces.LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}
