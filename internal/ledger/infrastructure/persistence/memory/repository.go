// Package memory 进程内交易仓储
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/marketledger/internal/ledger/domain"
)

// TransactionRepository 按用户保存交易，查询时按时间倒序返回副本
type TransactionRepository struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byUser: make(map[string][]domain.Transaction)}
}

func (r *TransactionRepository) Save(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[t.UserID] = append(r.byUser[t.UserID], *t)
	return nil
}

func (r *TransactionRepository) ListByUser(_ context.Context, userID string, offset, limit int) ([]*domain.Transaction, int64, error) {
	all := r.sorted(userID)
	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Transaction{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r *TransactionRepository) FindAllByUser(_ context.Context, userID string) ([]*domain.Transaction, error) {
	return r.sorted(userID), nil
}

func (r *TransactionRepository) sorted(userID string) []*domain.Transaction {
	r.mu.RLock()
	src := r.byUser[userID]
	res := make([]*domain.Transaction, len(src))
	for i := range src {
		t := src[i]
		res[i] = &t
	}
	r.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].Timestamp.Equal(res[j].Timestamp) {
			return res[i].Timestamp.After(res[j].Timestamp)
		}
		return res[i].ID > res[j].ID
	})
	return res
}
