package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"personvault/internal/person/matching"
	"personvault/internal/person/models"
	"personvault/internal/person/service"
	"personvault/pkg/platform/sentinel"
	txcontext "personvault/pkg/platform/tx"
)

// defaultTxTimeout bounds a transaction whose context carries no deadline.
const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps groups, change sets and records in process memory.
// Transactions run against a private copy under a store-wide lock and
// replace the live data only when fn succeeds, so a failed Apply leaves no
// trace and concurrent readers never observe a half-applied change. Writes
// other stores register through txcontext.OnCommitFrom run after the swap.
type InMemoryStore struct {
	mu      sync.RWMutex
	data    *memData
	timeout time.Duration
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{data: newMemData()}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, _ int64, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	working := s.data.clone()
	ctx, onCommit := txcontext.WithOnCommit(ctx)
	if err := fn(ctx, &memView{d: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted before commit: %w", err)
	}
	if err := working.checkSingleCurrent(); err != nil {
		return err
	}
	s.data = working
	onCommit.Run()
	return nil
}

func (s *InMemoryStore) read() *memView {
	return &memView{d: s.data}
}

func (s *InMemoryStore) FindMatchingGroup(ctx context.Context, criteria matching.Criteria) (models.GroupID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindMatchingGroup(ctx, criteria)
}

func (s *InMemoryStore) CreateGroup(ctx context.Context, createdAt time.Time) (models.GroupID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreateGroup(ctx, createdAt)
}

func (s *InMemoryStore) CreateChangeSet(ctx context.Context, cs *models.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreateChangeSet(ctx, cs)
}

func (s *InMemoryStore) FindChangeSet(ctx context.Context, id uuid.UUID) (*models.ChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindChangeSet(ctx, id)
}

func (s *InMemoryStore) FindLatestCurrent(ctx context.Context, groupID models.GroupID) (*models.CurrentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindLatestCurrent(ctx, groupID)
}

func (s *InMemoryStore) InsertCurrent(ctx context.Context, rec *models.CurrentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertCurrent(ctx, rec)
}

func (s *InMemoryStore) InsertHistory(ctx context.Context, rec *models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertHistory(ctx, rec)
}

func (s *InMemoryStore) RetireCurrent(ctx context.Context, id models.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().RetireCurrent(ctx, id)
}

func (s *InMemoryStore) FindCurrentAsOf(ctx context.Context, groupID models.GroupID, at time.Time) (*models.CurrentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindCurrentAsOf(ctx, groupID, at)
}

func (s *InMemoryStore) FindHistoryAt(ctx context.Context, groupID models.GroupID, at time.Time) (*models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindHistoryAt(ctx, groupID, at)
}

func (s *InMemoryStore) ListHistory(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListHistory(ctx, groupID)
}

func (s *InMemoryStore) SearchCurrent(ctx context.Context, filter models.SearchFilter) ([]*models.CurrentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().SearchCurrent(ctx, filter)
}

// CountGroups reports how many identity groups exist.
func (s *InMemoryStore) CountGroups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.groups)
}

// CurrentRecords returns copies of every live record, ordered by group.
func (s *InMemoryStore) CurrentRecords() []*models.CurrentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CurrentRecord
	for _, r := range s.data.records {
		if r.IsCurrent {
			out = append(out, copyRecord(r))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.CurrentRecord) int { return cmp.Compare(a.GroupID, b.GroupID) })
	return out
}

type memData struct {
	nextGroupID   int64
	nextRecordID  int64
	nextHistoryID int64
	groups        map[models.GroupID]time.Time
	changeSets    map[uuid.UUID]models.ChangeSet
	records       []*models.CurrentRecord
	history       []*models.HistoryRecord
}

func newMemData() *memData {
	return &memData{
		groups:     make(map[models.GroupID]time.Time),
		changeSets: make(map[uuid.UUID]models.ChangeSet),
	}
}

func (d *memData) clone() *memData {
	out := &memData{
		nextGroupID:   d.nextGroupID,
		nextRecordID:  d.nextRecordID,
		nextHistoryID: d.nextHistoryID,
		groups:        make(map[models.GroupID]time.Time, len(d.groups)),
		changeSets:    make(map[uuid.UUID]models.ChangeSet, len(d.changeSets)),
		records:       make([]*models.CurrentRecord, 0, len(d.records)+1),
		history:       make([]*models.HistoryRecord, 0, len(d.history)+1),
	}
	for k, v := range d.groups {
		out.groups[k] = v
	}
	for k, v := range d.changeSets {
		out.changeSets[k] = v
	}
	for _, r := range d.records {
		out.records = append(out.records, copyRecord(r))
	}
	// History rows are immutable once written and can be shared.
	out.history = append(out.history, d.history...)
	return out
}

// checkSingleCurrent mirrors the deferred exclusion constraint of the
// Postgres schema.
func (d *memData) checkSingleCurrent() error {
	live := make(map[models.GroupID]bool)
	for _, r := range d.records {
		if !r.IsCurrent {
			continue
		}
		if live[r.GroupID] {
			return fmt.Errorf("group %d has more than one current record: %w", r.GroupID, sentinel.ErrConflict)
		}
		live[r.GroupID] = true
	}
	return nil
}

// memView implements service.Store over one memData without locking; the
// owner of the view holds the lock.
type memView struct {
	d *memData
}

func (v *memView) FindMatchingGroup(_ context.Context, criteria matching.Criteria) (models.GroupID, error) {
	var best models.GroupID
	for _, r := range v.d.records {
		if !criteria.Matches(r) {
			continue
		}
		if best == 0 || r.GroupID < best {
			best = r.GroupID
		}
	}
	if best == 0 {
		return 0, sentinel.ErrNotFound
	}
	return best, nil
}

func (v *memView) CreateGroup(_ context.Context, createdAt time.Time) (models.GroupID, error) {
	v.d.nextGroupID++
	id := models.GroupID(v.d.nextGroupID)
	v.d.groups[id] = createdAt
	return id, nil
}

func (v *memView) CreateChangeSet(_ context.Context, cs *models.ChangeSet) error {
	if cs == nil {
		return fmt.Errorf("change set is required")
	}
	if _, exists := v.d.changeSets[cs.ID]; exists {
		return fmt.Errorf("create change set %s: %w", cs.ID, sentinel.ErrConflict)
	}
	v.d.changeSets[cs.ID] = *cs
	return nil
}

func (v *memView) FindChangeSet(_ context.Context, id uuid.UUID) (*models.ChangeSet, error) {
	cs, ok := v.d.changeSets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &cs, nil
}

func (v *memView) FindLatestCurrent(_ context.Context, groupID models.GroupID) (*models.CurrentRecord, error) {
	return v.latest(func(r *models.CurrentRecord) bool {
		return r.GroupID == groupID && r.IsCurrent
	})
}

func (v *memView) InsertCurrent(_ context.Context, rec *models.CurrentRecord) error {
	if rec == nil {
		return fmt.Errorf("current record is required")
	}
	if _, ok := v.d.groups[rec.GroupID]; !ok {
		return fmt.Errorf("insert current record for group %d: %w", rec.GroupID, sentinel.ErrReferenceMissing)
	}
	if rec.ChangeSetID != uuid.Nil {
		if _, ok := v.d.changeSets[rec.ChangeSetID]; !ok {
			return fmt.Errorf("insert current record change set %s: %w", rec.ChangeSetID, sentinel.ErrReferenceMissing)
		}
	}
	v.d.nextRecordID++
	rec.ID = models.RecordID(v.d.nextRecordID)
	v.d.records = append(v.d.records, copyRecord(rec))
	return nil
}

func (v *memView) InsertHistory(_ context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("history record is required")
	}
	if !rec.ValidTo.After(rec.ValidFrom) {
		return fmt.Errorf("history interval [%s, %s) is empty", rec.ValidFrom, rec.ValidTo)
	}
	v.d.nextHistoryID++
	rec.ID = v.d.nextHistoryID
	stored := *rec
	stored.Attributes = rec.Attributes.Clone()
	v.d.history = append(v.d.history, &stored)
	return nil
}

func (v *memView) RetireCurrent(_ context.Context, id models.RecordID) error {
	for _, r := range v.d.records {
		if r.ID == id {
			r.IsCurrent = false
			return nil
		}
	}
	return fmt.Errorf("retire record %d: %w", id, sentinel.ErrNotFound)
}

func (v *memView) FindCurrentAsOf(_ context.Context, groupID models.GroupID, at time.Time) (*models.CurrentRecord, error) {
	return v.latest(func(r *models.CurrentRecord) bool {
		return r.GroupID == groupID && r.IsCurrent && !r.CreatedAt.After(at)
	})
}

func (v *memView) FindHistoryAt(_ context.Context, groupID models.GroupID, at time.Time) (*models.HistoryRecord, error) {
	var best *models.HistoryRecord
	for _, h := range v.d.history {
		if h.GroupID != groupID || !h.Contains(at) {
			continue
		}
		if best == nil || h.ValidFrom.After(best.ValidFrom) {
			best = h
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyHistory(best), nil
}

func (v *memView) ListHistory(_ context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error) {
	var out []*models.HistoryRecord
	for _, h := range v.d.history {
		if h.GroupID == groupID {
			out = append(out, copyHistory(h))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.HistoryRecord) int { return a.ValidFrom.Compare(b.ValidFrom) })
	return out, nil
}

func (v *memView) SearchCurrent(_ context.Context, filter models.SearchFilter) ([]*models.CurrentRecord, error) {
	var out []*models.CurrentRecord
	for _, r := range v.d.records {
		if r.IsCurrent && filterMatches(filter, r) {
			out = append(out, copyRecord(r))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.CurrentRecord) int { return cmp.Compare(a.GroupID, b.GroupID) })
	if filter.Offset >= len(out) {
		return []*models.CurrentRecord{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (v *memView) latest(keep func(*models.CurrentRecord) bool) (*models.CurrentRecord, error) {
	var best *models.CurrentRecord
	for _, r := range v.d.records {
		if !keep(r) {
			continue
		}
		if best == nil || !r.CreatedAt.Before(best.CreatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(best), nil
}

func filterMatches(f models.SearchFilter, r *models.CurrentRecord) bool {
	return fieldMatches(f.LastName, &r.LastName) &&
		fieldMatches(f.FirstName, &r.FirstName) &&
		fieldMatches(f.MiddleName, r.MiddleName) &&
		fieldMatches(f.Address, &r.Address) &&
		fieldMatches(f.Phone, r.Phone) &&
		fieldMatches(f.Email, r.Email)
}

func fieldMatches(want string, got *string) bool {
	if want == "" {
		return true
	}
	return got != nil && *got == want
}

func copyRecord(r *models.CurrentRecord) *models.CurrentRecord {
	out := *r
	out.Attributes = r.Attributes.Clone()
	return &out
}

func copyHistory(h *models.HistoryRecord) *models.HistoryRecord {
	out := *h
	out.Attributes = h.Attributes.Clone()
	return &out
}
