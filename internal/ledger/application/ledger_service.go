// 包 application 交易台账的应用服务
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/ledger/domain"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/metrics"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// RecordTransactionCommand 记录交易命令
type RecordTransactionCommand struct {
	UserID   string
	Ticker   string
	Type     string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// LedgerService 交易入账、分页查询与汇总报表
type LedgerService struct {
	repo      domain.TransactionRepository
	assets    domain.AssetLookup
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	ids       *utils.SnowflakeID
	topic     string
	now       func() time.Time
}

func NewLedgerService(
	repo domain.TransactionRepository,
	assets domain.AssetLookup,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	ids *utils.SnowflakeID,
	topic string,
) *LedgerService {
	return &LedgerService{
		repo:      repo,
		assets:    assets,
		publisher: publisher,
		metrics:   m,
		ids:       ids,
		topic:     topic,
		now:       time.Now,
	}
}

// RecordTransaction 记录一笔交易。非幂等，重复调用会产生重复记录
func (s *LedgerService) RecordTransaction(ctx context.Context, cmd RecordTransactionCommand) (*domain.Transaction, error) {
	typ, err := domain.ParseTransactionType(cmd.Type)
	if err != nil {
		return nil, err
	}

	tx, err := domain.NewTransaction(s.ids.Generate(), cmd.UserID, cmd.Ticker, typ, cmd.Quantity, cmd.Price, s.now())
	if err != nil {
		return nil, err
	}

	exists, err := s.assets.AssetExists(ctx, tx.Ticker)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.NotFoundError("asset %s not found", tx.Ticker)
	}

	if err := s.repo.Save(ctx, tx); err != nil {
		return nil, err
	}
	s.metrics.RecordTransaction(string(tx.Type))

	if s.publisher != nil && s.topic != "" {
		if err := s.publisher.Publish(ctx, s.topic, tx.UserID, domain.NewTransactionRecordedEvent(tx)); err != nil {
			logger.Warn(ctx, "failed to publish transaction event", "transaction_id", tx.ID, "error", err)
		}
	}

	logger.Info(ctx, "transaction recorded",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"ticker", tx.Ticker,
		"type", tx.Type,
		"quantity", tx.Quantity.String(),
	)
	return tx, nil
}

// ListTransactions 分页查询用户交易，页码从 0 开始，最新在前
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, page, size int) (*domain.Page, error) {
	p := utils.NewPagination(page, size, 0)
	txs, total, err := s.repo.ListByUser(ctx, userID, p.Offset(), p.Limit())
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	return &domain.Page{
		Content:    txs,
		Pagination: utils.NewPagination(p.Page, p.PageSize, total),
	}, nil
}

// GenerateReport 实时汇总用户的全部交易
func (s *LedgerService) GenerateReport(ctx context.Context, userID string) (*domain.Report, error) {
	txs, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.BuildReport(userID, txs, s.now()), nil
}
