package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/models"
)

// memoryLedgerRepository keeps sandbox state in process memory. WithTransaction snapshots
// the whole store and restores it if fn fails.
type memoryLedgerRepository struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	store memoryStore
}

type memoryStore struct {
	accounts map[string]models.Account
	keys     map[string]map[string]models.AccessKey
	outcomes map[string]models.ExecutionOutcome
	blocks   []models.Block
}

func NewMemoryLedgerRepository() interfaces.LedgerRepository {
	return &memoryLedgerRepository{store: memoryStore{
		accounts: map[string]models.Account{},
		keys:     map[string]map[string]models.AccessKey{},
		outcomes: map[string]models.ExecutionOutcome{},
	}}
}

func (s memoryStore) clone() memoryStore {
	out := memoryStore{
		accounts: make(map[string]models.Account, len(s.accounts)),
		keys:     make(map[string]map[string]models.AccessKey, len(s.keys)),
		outcomes: make(map[string]models.ExecutionOutcome, len(s.outcomes)),
		blocks:   append([]models.Block(nil), s.blocks...),
	}
	for k, v := range s.accounts {
		v.State = append(models.JSONRaw(nil), v.State...)
		out.accounts[k] = v
	}
	for account, keys := range s.keys {
		copied := make(map[string]models.AccessKey, len(keys))
		for k, v := range keys {
			copied[k] = v
		}
		out.keys[account] = copied
	}
	for k, v := range s.outcomes {
		out.outcomes[k] = v
	}
	return out
}

func (r *memoryLedgerRepository) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.store.accounts[accountID]
	if !ok {
		return nil, nil
	}
	account.State = append(models.JSONRaw(nil), account.State...)
	return &account, nil
}

func (r *memoryLedgerRepository) SaveAccount(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.store.accounts[account.AccountID]; ok {
		account.CreatedAt = existing.CreatedAt
	} else if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	stored := *account
	stored.State = append(models.JSONRaw(nil), account.State...)
	r.store.accounts[account.AccountID] = stored
	return nil
}

func (r *memoryLedgerRepository) GetAccessKey(_ context.Context, accountID, publicKey string) (*models.AccessKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.store.keys[accountID][publicKey]
	if !ok {
		return nil, nil
	}
	return &key, nil
}

func (r *memoryLedgerRepository) GetAccessKeys(_ context.Context, accountID string) ([]*models.AccessKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]*models.AccessKey, 0, len(r.store.keys[accountID]))
	for _, k := range r.store.keys[accountID] {
		key := k
		keys = append(keys, &key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].PublicKey < keys[j].PublicKey
	})
	return keys, nil
}

func (r *memoryLedgerRepository) SaveAccessKey(_ context.Context, key *models.AccessKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store.keys[key.AccountID] == nil {
		r.store.keys[key.AccountID] = map[string]models.AccessKey{}
	}
	now := time.Now()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}
	key.UpdatedAt = now
	r.store.keys[key.AccountID][key.PublicKey] = *key
	return nil
}

func (r *memoryLedgerRepository) DeleteAccessKey(_ context.Context, accountID, publicKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store.keys[accountID], publicKey)
	return nil
}

func (r *memoryLedgerRepository) SaveOutcome(_ context.Context, outcome *models.ExecutionOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now()
	}
	r.store.outcomes[outcome.ID] = *outcome
	return nil
}

func (r *memoryLedgerRepository) GetOutcome(_ context.Context, id string) (*models.ExecutionOutcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outcome, ok := r.store.outcomes[id]
	if !ok {
		return nil, nil
	}
	return &outcome, nil
}

func (r *memoryLedgerRepository) GetOutcomesByTx(_ context.Context, txHash string) ([]*models.ExecutionOutcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var outcomes []*models.ExecutionOutcome
	for _, o := range r.store.outcomes {
		if o.TxHash == txHash {
			outcome := o
			outcomes = append(outcomes, &outcome)
		}
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].BlockHeight != outcomes[j].BlockHeight {
			return outcomes[i].BlockHeight < outcomes[j].BlockHeight
		}
		return outcomes[i].CreatedAt.Before(outcomes[j].CreatedAt)
	})
	return outcomes, nil
}

func (r *memoryLedgerRepository) SaveBlock(_ context.Context, block *models.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.blocks = append(r.store.blocks, *block)
	return nil
}

func (r *memoryLedgerRepository) GetLatestBlock(_ context.Context) (*models.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.store.blocks) == 0 {
		return nil, nil
	}
	block := r.store.blocks[len(r.store.blocks)-1]
	return &block, nil
}

func (r *memoryLedgerRepository) WithTransaction(_ context.Context, fn func(repo interfaces.LedgerRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := r.store.clone()
	r.mu.RUnlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.store = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}
