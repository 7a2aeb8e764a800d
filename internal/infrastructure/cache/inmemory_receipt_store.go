package cache

import (
	"context"
	"sync"
	"time"

	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
)

type receiptEntry struct {
	receipt   webhook.Receipt
	expiresAt time.Time
}

type orderEntry struct {
	record    webhook.OrderRecord
	expiresAt time.Time
}

// InMemoryReceiptStore implements webhook.ReceiptStore using in-memory maps.
// Suitable for single-instance deployments and testing.
type InMemoryReceiptStore struct {
	mu        sync.RWMutex
	receipts  map[string]receiptEntry
	orders    map[string]orderEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReceiptStore creates the store and starts a background sweep of expired entries
func NewInMemoryReceiptStore() *InMemoryReceiptStore {
	s := newInMemoryReceiptStore(time.Now)
	s.wg.Add(1)
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func newInMemoryReceiptStore(now func() time.Time) *InMemoryReceiptStore {
	return &InMemoryReceiptStore{
		receipts: make(map[string]receiptEntry),
		orders:   make(map[string]orderEntry),
		now:      now,
		stopChan: make(chan struct{}),
	}
}

// Lookup implements webhook.ReceiptStore
func (s *InMemoryReceiptStore) Lookup(_ context.Context, eventID string) (*webhook.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.receipts[eventID]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, webhook.ErrReceiptNotFound
	}
	r := e.receipt
	return &r, nil
}

// Record implements webhook.ReceiptStore. An expired receipt is overwritten.
func (s *InMemoryReceiptStore) Record(_ context.Context, receipt *webhook.Receipt, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.receipts[receipt.EventID]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.receipts[receipt.EventID] = receiptEntry{receipt: *receipt, expiresAt: now.Add(ttl)}
	return true, nil
}

// LookupOrder implements webhook.ReceiptStore
func (s *InMemoryReceiptStore) LookupOrder(_ context.Context, orderID string) (*webhook.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.orders[orderID]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, webhook.ErrReceiptNotFound
	}
	r := e.record
	r.Lines = append([]webhook.OrderLine(nil), e.record.Lines...)
	return &r, nil
}

// RecordOrder implements webhook.ReceiptStore
func (s *InMemoryReceiptStore) RecordOrder(_ context.Context, record *webhook.OrderRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *record
	r.Lines = append([]webhook.OrderLine(nil), record.Lines...)
	s.orders[record.OrderID] = orderEntry{record: r, expiresAt: s.now().Add(ttl)}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryReceiptStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryReceiptStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryReceiptStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.receipts {
		if !now.Before(e.expiresAt) {
			delete(s.receipts, id)
		}
	}
	for id, e := range s.orders {
		if !now.Before(e.expiresAt) {
			delete(s.orders, id)
		}
	}
}

// Size returns the number of stored receipts (for testing/monitoring)
func (s *InMemoryReceiptStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.receipts)
}

var _ webhook.ReceiptStore = (*InMemoryReceiptStore)(nil)
