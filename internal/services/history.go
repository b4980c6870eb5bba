package services

//go:generate mockgen -source=history.go -destination=history_mock.go -package=services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/pagination"
)

// HistoryReader reads account state and history pages.
type HistoryReader interface {
	GetAccount(ctx context.Context, ref models.AccountRef, currency string) (*models.Account, error)
	ListTransactions(ctx context.Context, ref models.AccountRef, limit int, beforeSeq *int64) ([]models.Transaction, error)
}

// SnapshotSubscriber delivers account snapshots published after commits.
type SnapshotSubscriber interface {
	Subscribe(ctx context.Context, ref models.AccountRef) (<-chan models.AccountSnapshot, error)
}

// SubscriberMetrics tracks open live subscriptions.
type SubscriberMetrics interface {
	SubscriberOpened()
	SubscriberClosed()
}

// Page is one slice of an account's history, newest first.
type Page struct {
	Records    []models.Transaction `json:"records"`
	NextCursor string               `json:"next_cursor,omitempty"`
	HasMore    bool                 `json:"has_more"`
}

// HistoryService serves the live balance and paginated history of an account.
type HistoryService struct {
	cfg        LedgerConfig
	reader     HistoryReader
	subscriber SnapshotSubscriber
	metrics    SubscriberMetrics
}

// NewHistoryService creates a new HistoryService. metrics may be nil.
func NewHistoryService(cfg LedgerConfig, reader HistoryReader, subscriber SnapshotSubscriber, metrics SubscriberMetrics) *HistoryService {
	return &HistoryService{
		cfg:        cfg,
		reader:     reader,
		subscriber: subscriber,
		metrics:    metrics,
	}
}

// List returns up to pageSize records older than cursor. An empty cursor starts
// at the newest record. Pages are keyed on seq, so records committed between
// calls never shift an existing page.
func (s *HistoryService) List(ctx context.Context, ref models.AccountRef, pageSize int, cursor string) (*Page, error) {
	limit := pagination.ClampLimit(pageSize)

	c, err := pagination.Decode(cursor)
	if err != nil {
		return nil, err
	}
	var beforeSeq *int64
	if c != nil {
		beforeSeq = &c.Seq
	}

	records, err := s.reader.ListTransactions(ctx, ref, limit+1, beforeSeq)
	if err != nil {
		logger.Log.Errorw("failed to list transactions", "account", ref.String(), "error", err)
		return nil, err
	}

	page := &Page{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		page.HasMore = true
		last := page.Records[limit-1]
		page.NextCursor = pagination.Cursor{Seq: last.Seq, ID: last.ID.String()}.Encode()
	}
	if page.Records == nil {
		page.Records = []models.Transaction{}
	}
	return page, nil
}

// Subscribe streams the account snapshot: the current state first, then every
// committed change with a higher version. Stale or duplicate updates are
// dropped. The channel closes when ctx is done.
func (s *HistoryService) Subscribe(ctx context.Context, ref models.AccountRef) (<-chan models.AccountSnapshot, error) {
	subCtx, cancel := context.WithCancel(ctx)

	// Subscribe before reading so a commit between the two is not lost.
	updates, err := s.subscriber.Subscribe(subCtx, ref)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", ref, err)
	}

	acc, err := s.reader.GetAccount(ctx, ref, s.cfg.CurrencyFor(ref.Kind))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initial snapshot %s: %w", ref, err)
	}

	if s.metrics != nil {
		s.metrics.SubscriberOpened()
	}

	out := make(chan models.AccountSnapshot, 1)
	out <- acc.Snapshot()

	go func() {
		defer close(out)
		defer cancel()
		if s.metrics != nil {
			defer s.metrics.SubscriberClosed()
		}

		last := acc.Version
		for {
			select {
			case <-subCtx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if snap.Version <= last {
					continue
				}
				last = snap.Version
				select {
				case out <- snap:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	logger.Log.Infow("live balance subscription opened", "account", ref.String(), "version", acc.Version)
	return out, nil
}

// Filter narrows already-fetched records by free text and type.
type Filter struct {
	Query string                   // Case-insensitive substring of type, method, note or counterparty label
	Types []models.TransactionType // Empty means all types
}

// Match reports whether t passes the filter.
func (f Filter) Match(t models.Transaction) bool {
	if len(f.Types) > 0 {
		found := false
		for _, typ := range f.Types {
			if typ == t.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	fields := []string{string(t.Type), t.Method, t.Note}
	if t.Counterparty != nil {
		fields = append(fields, t.Counterparty.Label)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the records that match, preserving order.
func (f Filter) Apply(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// PageLister fetches history pages.
type PageLister interface {
	List(ctx context.Context, ref models.AccountRef, pageSize int, cursor string) (*Page, error)
}

// HistoryPager walks an account's history page by page and keeps what it has fetched.
// Once a page reports no more records the pager is exhausted and Next is a no-op.
type HistoryPager struct {
	lister   PageLister
	ref      models.AccountRef
	pageSize int
	cursor   string
	records  []models.Transaction
	done     bool
}

func NewHistoryPager(lister PageLister, ref models.AccountRef, pageSize int) *HistoryPager {
	return &HistoryPager{lister: lister, ref: ref, pageSize: pageSize}
}

// Next fetches the following page and returns its records.
func (p *HistoryPager) Next(ctx context.Context) ([]models.Transaction, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.lister.List(ctx, p.ref, p.pageSize, p.cursor)
	if err != nil {
		return nil, err
	}

	p.records = append(p.records, page.Records...)
	p.cursor = page.NextCursor
	p.done = !page.HasMore
	return page.Records, nil
}

// Fill pulls pages until at least want fetched records match f or the history
// is exhausted, and returns the matches.
func (p *HistoryPager) Fill(ctx context.Context, f Filter, want int) ([]models.Transaction, error) {
	for {
		matches := f.Apply(p.records)
		if len(matches) >= want || p.done {
			return matches, nil
		}
		if _, err := p.Next(ctx); err != nil {
			return matches, err
		}
	}
}

// Records returns every record fetched so far, newest first.
func (p *HistoryPager) Records() []models.Transaction {
	return p.records
}

// Done reports whether the history is exhausted.
func (p *HistoryPager) Done() bool {
	return p.done
}
