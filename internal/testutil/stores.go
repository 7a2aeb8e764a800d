package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
)

func notFound(sentinel error) error {
	return fmt.Errorf("%w: %w", sentinel, shared.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Mappings
// ---------------------------------------------------------------------------

// MappingStore is an in-memory integration.MappingRepository keyed by SKU
type MappingStore struct {
	mu    sync.Mutex
	bySKU map[string]integration.Mapping
	// FindActiveErr is returned by FindActive when set
	FindActiveErr error
	saves         int
}

// NewMappingStore creates a store seeded with mappings
func NewMappingStore(mappings ...*integration.Mapping) *MappingStore {
	s := &MappingStore{bySKU: make(map[string]integration.Mapping)}
	for _, m := range mappings {
		s.bySKU[m.SKU] = *m
	}
	return s
}

func (s *MappingStore) find(match func(m *integration.Mapping) bool) (*integration.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.bySKU {
		if match(&m) {
			out := m
			return &out, nil
		}
	}
	return nil, notFound(integration.ErrMappingNotFound)
}

// FindByID implements integration.MappingRepository
func (s *MappingStore) FindByID(_ context.Context, id uuid.UUID) (*integration.Mapping, error) {
	return s.find(func(m *integration.Mapping) bool { return m.ID == id })
}

// FindBySKU implements integration.MappingRepository
func (s *MappingStore) FindBySKU(_ context.Context, sku string) (*integration.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.bySKU[sku]
	if !ok {
		return nil, notFound(integration.ErrMappingNotFound)
	}
	return &m, nil
}

// FindByShopifyVariantID implements integration.MappingRepository
func (s *MappingStore) FindByShopifyVariantID(_ context.Context, variantID string) (*integration.Mapping, error) {
	return s.find(func(m *integration.Mapping) bool { return m.ShopifyVariantID == variantID })
}

// FindByInventoryItem implements integration.MappingRepository
func (s *MappingStore) FindByInventoryItem(_ context.Context, itemID, locationID string) (*integration.Mapping, error) {
	return s.find(func(m *integration.Mapping) bool { return m.MatchesInventoryLevel(itemID, locationID) })
}

// FindActive implements integration.MappingRepository
func (s *MappingStore) FindActive(_ context.Context) ([]integration.Mapping, error) {
	if s.FindActiveErr != nil {
		return nil, s.FindActiveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]integration.Mapping, 0, len(s.bySKU))
	for _, m := range s.bySKU {
		if m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// List implements integration.MappingRepository with the IsActive and Search filters
func (s *MappingStore) List(ctx context.Context, f integration.MappingFilter) ([]integration.Mapping, int64, error) {
	s.mu.Lock()
	all := make([]integration.Mapping, 0, len(s.bySKU))
	for _, m := range s.bySKU {
		if f.IsActive != nil && m.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.SKU), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, m)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	total := int64(len(all))
	start := f.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}
	return all[start:end], total, nil
}

// Create implements integration.MappingRepository
func (s *MappingStore) Create(_ context.Context, m *integration.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySKU[m.SKU]; ok {
		return fmt.Errorf("%w: %w", integration.ErrMappingDuplicateSKU, shared.ErrAlreadyExists)
	}
	s.bySKU[m.SKU] = *m
	return nil
}

// Save implements integration.MappingRepository
func (s *MappingStore) Save(_ context.Context, m *integration.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySKU[m.SKU]; !ok {
		return notFound(integration.ErrMappingNotFound)
	}
	s.bySKU[m.SKU] = *m
	s.saves++
	return nil
}

// Get returns a copy of the stored mapping for sku, or nil when absent
func (s *MappingStore) Get(sku string) *integration.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.bySKU[sku]
	if !ok {
		return nil
	}
	return &m
}

// Saves returns how many times Save succeeded
func (s *MappingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

// LedgerStore is an in-memory inventory.TransactionRepository
type LedgerStore struct {
	mu      sync.Mutex
	entries []inventory.InventoryTransaction
}

// NewLedgerStore creates an empty ledger
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

// Append implements inventory.TransactionRepository
func (s *LedgerStore) Append(_ context.Context, tx *inventory.InventoryTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *tx)
	return nil
}

func (s *LedgerStore) match(tx *inventory.InventoryTransaction, f inventory.TransactionFilter) bool {
	if f.SKU != "" && tx.SKU != f.SKU {
		return false
	}
	if f.Platform != nil && tx.Platform != *f.Platform {
		return false
	}
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.OrderID != "" && tx.OrderID != f.OrderID {
		return false
	}
	if f.Since != nil && tx.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// FindLatest implements inventory.TransactionRepository
func (s *LedgerStore) FindLatest(_ context.Context, sku string, platform integration.PlatformCode) (*inventory.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].SKU == sku && s.entries[i].Platform == platform {
			out := s.entries[i]
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// List implements inventory.TransactionRepository, newest first
func (s *LedgerStore) List(_ context.Context, f inventory.TransactionFilter) ([]inventory.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.InventoryTransaction, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.match(&s.entries[i], f) {
			out = append(out, s.entries[i])
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out, nil
}

// Count implements inventory.TransactionRepository
func (s *LedgerStore) Count(_ context.Context, f inventory.TransactionFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.entries {
		if s.match(&s.entries[i], f) {
			n++
		}
	}
	return n, nil
}

// Entries returns every entry in append order
func (s *LedgerStore) Entries() []inventory.InventoryTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.InventoryTransaction, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries
func (s *LedgerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

// JobStore is an in-memory syncjob.Repository
type JobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]syncjob.SyncJob
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]syncjob.SyncJob)}
}

func cloneJob(j syncjob.SyncJob) syncjob.SyncJob {
	j.Errors = append([]syncjob.ItemError(nil), j.Errors...)
	j.Options.SKUs = append([]string(nil), j.Options.SKUs...)
	return j
}

// Create implements syncjob.Repository
func (s *JobStore) Create(_ context.Context, job *syncjob.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return shared.ErrAlreadyExists
	}
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

// Save implements syncjob.Repository
func (s *JobStore) Save(_ context.Context, job *syncjob.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return notFound(syncjob.ErrJobNotFound)
	}
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

// FindByID implements syncjob.Repository
func (s *JobStore) FindByID(_ context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, notFound(syncjob.ErrJobNotFound)
	}
	out := cloneJob(j)
	return &out, nil
}

func (s *JobStore) sorted(keep func(j *syncjob.SyncJob) bool, newestFirst bool) []syncjob.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]syncjob.SyncJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if keep(&j) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

// List implements syncjob.Repository
func (s *JobStore) List(_ context.Context, f syncjob.Filter) ([]syncjob.SyncJob, int64, error) {
	all := s.sorted(func(j *syncjob.SyncJob) bool {
		if f.Status != nil && j.Status != *f.Status {
			return false
		}
		if f.Type != nil && j.Type != *f.Type {
			return false
		}
		return f.Since == nil || !j.CreatedAt.Before(*f.Since)
	}, true)
	total := int64(len(all))
	start := f.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}
	return all[start:end], total, nil
}

// FindFinishedSince implements syncjob.Repository
func (s *JobStore) FindFinishedSince(_ context.Context, since time.Time) ([]syncjob.SyncJob, error) {
	return s.sorted(func(j *syncjob.SyncJob) bool {
		return j.Status.IsTerminal() && j.CompletedAt != nil && !j.CompletedAt.Before(since)
	}, false), nil
}

// FindByStatus implements syncjob.Repository
func (s *JobStore) FindByStatus(_ context.Context, statuses ...syncjob.Status) ([]syncjob.SyncJob, error) {
	return s.sorted(func(j *syncjob.SyncJob) bool {
		for _, st := range statuses {
			if j.Status == st {
				return true
			}
		}
		return false
	}, false), nil
}

// Get returns a copy of the stored job
func (s *JobStore) Get(id uuid.UUID) syncjob.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJob(s.jobs[id])
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

// AlertStore is an in-memory alert.Repository
type AlertStore struct {
	mu     sync.Mutex
	alerts map[string]alert.Alert
}

// NewAlertStore creates an empty alert store
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]alert.Alert)}
}

// Create implements alert.Repository
func (s *AlertStore) Create(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; ok {
		return shared.ErrAlreadyExists
	}
	s.alerts[a.ID] = *a
	return nil
}

// Save implements alert.Repository
func (s *AlertStore) Save(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		return notFound(alert.ErrAlertNotFound)
	}
	s.alerts[a.ID] = *a
	return nil
}

// FindByID implements alert.Repository
func (s *AlertStore) FindByID(_ context.Context, id string) (*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, notFound(alert.ErrAlertNotFound)
	}
	return &a, nil
}

func (s *AlertStore) collect(keep func(a *alert.Alert) bool) []alert.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alert.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if keep(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// List implements alert.Repository, newest first
func (s *AlertStore) List(_ context.Context, f alert.Filter) ([]alert.Alert, error) {
	out := s.collect(func(a *alert.Alert) bool {
		if f.UnresolvedOnly && a.Resolved {
			return false
		}
		if f.SKU != "" && a.SKU != f.SKU {
			return false
		}
		if f.Type != nil && a.Type != *f.Type {
			return false
		}
		return f.VisibleAt.IsZero() || a.IsVisibleAt(f.VisibleAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// HasUnresolved implements alert.Repository
func (s *AlertStore) HasUnresolved(_ context.Context, t alert.Type, sku string) (bool, error) {
	return len(s.collect(func(a *alert.Alert) bool {
		return !a.Resolved && a.Type == t && a.SKU == sku
	})) > 0, nil
}

// FindUnresolvedBefore implements alert.Repository
func (s *AlertStore) FindUnresolvedBefore(_ context.Context, cutoff time.Time) ([]alert.Alert, error) {
	return s.collect(func(a *alert.Alert) bool {
		return !a.Resolved && a.CreatedAt.Before(cutoff)
	}), nil
}

// DeleteRemovable implements alert.Repository
func (s *AlertStore) DeleteRemovable(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.alerts {
		if a.Resolved && a.RemoveAfter != nil && !a.RemoveAfter.After(now) {
			delete(s.alerts, id)
			n++
		}
	}
	return n, nil
}

// CountUnresolvedBySeverity implements alert.Repository
func (s *AlertStore) CountUnresolvedBySeverity(_ context.Context) (map[alert.Severity]int, error) {
	counts := make(map[alert.Severity]int, 4)
	for _, sev := range alert.AllSeverities() {
		counts[sev] = 0
	}
	for _, a := range s.collect(func(a *alert.Alert) bool { return !a.Resolved }) {
		counts[a.Severity]++
	}
	return counts, nil
}

// All returns every stored alert, newest first
func (s *AlertStore) All() []alert.Alert {
	return s.collect(func(*alert.Alert) bool { return true })
}

// ---------------------------------------------------------------------------
// Pricing
// ---------------------------------------------------------------------------

// RateStore is an in-memory integration.ExchangeRateRepository
type RateStore struct {
	mu    sync.Mutex
	rates []integration.ExchangeRate
}

// NewRateStore creates a store seeded with rates
func NewRateStore(rates ...*integration.ExchangeRate) *RateStore {
	s := &RateStore{}
	for _, r := range rates {
		s.rates = append(s.rates, *r)
	}
	return s
}

// FindActive implements integration.ExchangeRateRepository
func (s *RateStore) FindActive(_ context.Context, base, target string) (*integration.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rates) - 1; i >= 0; i-- {
		r := s.rates[i]
		if r.IsActive && r.BaseCurrency == base && r.TargetCurrency == target {
			return &r, nil
		}
	}
	return nil, notFound(integration.ErrNoActiveExchangeRate)
}

// ReplaceActive implements integration.ExchangeRateRepository
func (s *RateStore) ReplaceActive(_ context.Context, rate *integration.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rates {
		if s.rates[i].IsActive && s.rates[i].BaseCurrency == rate.BaseCurrency && s.rates[i].TargetCurrency == rate.TargetCurrency {
			s.rates[i].Deactivate(rate.CreatedAt)
		}
	}
	s.rates = append(s.rates, *rate)
	return nil
}

// CountActive implements integration.ExchangeRateRepository
func (s *RateStore) CountActive(_ context.Context, base, target string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.rates {
		if r.IsActive && r.BaseCurrency == base && r.TargetCurrency == target {
			n++
		}
	}
	return n, nil
}

// ListRecent implements integration.ExchangeRateRepository
func (s *RateStore) ListRecent(_ context.Context, limit int) ([]integration.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]integration.ExchangeRate, 0, len(s.rates))
	for i := len(s.rates) - 1; i >= 0; i-- {
		out = append(out, s.rates[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// RuleStore is an in-memory integration.PriceRuleRepository
type RuleStore struct {
	mu    sync.Mutex
	rules []integration.PriceRule
	// Err is returned by FindActive when set
	Err error
}

// NewRuleStore creates a store seeded with rules
func NewRuleStore(rules ...integration.PriceRule) *RuleStore {
	return &RuleStore{rules: rules}
}

// FindActive implements integration.PriceRuleRepository
func (s *RuleStore) FindActive(_ context.Context) ([]integration.PriceRule, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]integration.PriceRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// Save implements integration.PriceRuleRepository
func (s *RuleStore) Save(_ context.Context, rule *integration.PriceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == rule.ID {
			s.rules[i] = *rule
			return nil
		}
	}
	s.rules = append(s.rules, *rule)
	return nil
}
