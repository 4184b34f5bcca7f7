package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"personvault/internal/person/models"
	"personvault/internal/person/service"
	"personvault/internal/person/service/mocks"
	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/platform/sentinel"
)

// =============================================================================
// Service Error Handling Suite (mocked collaborators)
// =============================================================================
// Store failures are hard to provoke against real backends; these cases pin
// the mapping from sentinel errors onto domain codes, the retry policy and the
// cache fallbacks.

type ServiceMocksSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	tx      *mocks.MockStoreTx
	cache   *mocks.MockHistoryCache
	outbox  *mocks.MockOutboxAppender
	service *service.Service
}

func TestServiceMocksSuite(t *testing.T) {
	suite.Run(t, new(ServiceMocksSuite))
}

func (s *ServiceMocksSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.tx = mocks.NewMockStoreTx(s.ctrl)
	s.cache = mocks.NewMockHistoryCache(s.ctrl)
	s.outbox = mocks.NewMockOutboxAppender(s.ctrl)
	svc, err := service.New(s.store, s.tx,
		service.WithHistoryCache(s.cache),
		service.WithOutbox(s.outbox),
		service.WithConflictRetries(2),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceMocksSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validSnapshot() models.Snapshot {
	return models.Snapshot{Gender: models.GenderFemale, FirstName: "Anna", LastName: "Ivanova", Address: "123 Main"}
}

// runFn makes the mocked transaction runner invoke fn against the mocked store.
func (s *ServiceMocksSuite) runFn(ctx context.Context, _ int64, fn func(context.Context, service.Store) error) error {
	return fn(ctx, s.store)
}

func (s *ServiceMocksSuite) TestApplyErrorMapping() {
	cases := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"serialization failure", fmt.Errorf("commit: %w", sentinel.ErrConflict), dErrors.CodeWriteConflict},
		{"deadline", fmt.Errorf("lock: %w", context.DeadlineExceeded), dErrors.CodeWriteConflict},
		{"unavailable", fmt.Errorf("begin: %w", sentinel.ErrUnavailable), dErrors.CodeUnavailable},
		{"missing reference", fmt.Errorf("insert: %w", sentinel.ErrReferenceMissing), dErrors.CodeNotFound},
		{"cancelled", fmt.Errorf("begin: %w", context.Canceled), dErrors.CodeTimeout},
		{"unexpected", errors.New("disk on fire"), dErrors.CodeInternal},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			svc, err := service.New(s.store, s.tx, service.WithConflictRetries(0))
			s.Require().NoError(err)
			s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(tc.err)

			_, err = svc.Apply(context.Background(), validSnapshot(), nil)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
			s.ErrorIs(err, tc.err)
		})
	}
}

func (s *ServiceMocksSuite) TestApplyRetriesConflicts() {
	s.Run("succeeds after transient conflicts", func() {
		gomock.InOrder(
			s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
			s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
			s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(s.runFn),
		)
		s.store.EXPECT().CreateChangeSet(gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().FindMatchingGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(0), sentinel.ErrNotFound)
		s.store.EXPECT().CreateGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(4), nil)
		s.store.EXPECT().InsertCurrent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, rec *models.CurrentRecord) error {
				rec.ID = 10
				return nil
			})
		s.outbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		rec, err := s.service.Apply(context.Background(), validSnapshot(), nil)
		s.Require().NoError(err)
		s.Equal(models.GroupID(4), rec.GroupID)
		s.Equal(models.RecordID(10), rec.ID)
	})

	s.Run("surfaces the conflict once retries are exhausted", func() {
		s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(3)

		_, err := s.service.Apply(context.Background(), validSnapshot(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeWriteConflict))
	})

	s.Run("other errors are not retried", func() {
		s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable).Times(1)

		_, err := s.service.Apply(context.Background(), validSnapshot(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceMocksSuite) TestApplyRetiresPrevious() {
	prevCS := uuid.New()
	prev := &models.CurrentRecord{
		ID:          3,
		GroupID:     2,
		ChangeSetID: prevCS,
		Attributes:  models.Attributes{Gender: models.GenderFemale, FirstName: "Anna", LastName: "Ivanova", Address: "123 Main"},
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsCurrent:   true,
	}

	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(s.runFn)
	s.store.EXPECT().CreateChangeSet(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().FindMatchingGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(2), nil)
	s.store.EXPECT().FindLatestCurrent(gomock.Any(), models.GroupID(2)).Return(prev, nil)
	s.store.EXPECT().InsertCurrent(gomock.Any(), gomock.Any()).Return(nil)

	var history *models.HistoryRecord
	s.store.EXPECT().InsertHistory(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h *models.HistoryRecord) error {
			history = h
			return nil
		})
	s.store.EXPECT().RetireCurrent(gomock.Any(), models.RecordID(3)).Return(nil)
	s.outbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.cache.EXPECT().Invalidate(gomock.Any(), models.GroupID(2)).Return(errors.New("redis down"))

	rec, err := s.service.Apply(context.Background(), validSnapshot(), nil)
	s.Require().NoError(err, "cache invalidation failures are not fatal")
	s.Require().NotNil(history)
	s.Equal(prev.CreatedAt, history.ValidFrom)
	s.Equal(rec.CreatedAt, history.ValidTo)
	s.Equal(rec.ChangeSetID, history.ChangeSetID)
	s.NotEqual(prevCS, history.ChangeSetID)
}

func (s *ServiceMocksSuite) TestApplyRetireFailureAbortsTransaction() {
	prev := &models.CurrentRecord{ID: 3, GroupID: 2, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), IsCurrent: true}
	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(s.runFn)
	s.store.EXPECT().CreateChangeSet(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().FindMatchingGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(2), nil)
	s.store.EXPECT().FindLatestCurrent(gomock.Any(), gomock.Any()).Return(prev, nil)
	s.store.EXPECT().InsertCurrent(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().InsertHistory(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().RetireCurrent(gomock.Any(), gomock.Any()).Return(sentinel.ErrNotFound)

	_, err := s.service.Apply(context.Background(), validSnapshot(), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceMocksSuite) TestResolveReadErrors() {
	s.store.EXPECT().FindMatchingGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(0), sentinel.ErrUnavailable)

	_, _, err := s.service.Resolve(context.Background(), validSnapshot())
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceMocksSuite) TestHistoryCache() {
	ctx := context.Background()
	cached := []*models.HistoryRecord{{ID: 1, GroupID: 5}}

	s.Run("hit skips the store", func() {
		s.cache.EXPECT().Get(gomock.Any(), models.GroupID(5)).Return(cached, int64(0), true, nil)

		out, err := s.service.HistoryOf(ctx, 5)
		s.Require().NoError(err)
		s.Equal(cached, out)
	})

	s.Run("miss reads through and fills", func() {
		s.cache.EXPECT().Get(gomock.Any(), models.GroupID(5)).Return(nil, int64(3), false, nil)
		s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(5)).Return(cached, nil)
		s.cache.EXPECT().Set(gomock.Any(), models.GroupID(5), int64(3), cached).Return(true, nil)

		out, err := s.service.HistoryOf(ctx, 5)
		s.Require().NoError(err)
		s.Equal(cached, out)
	})

	s.Run("read errors fall back to the store without filling", func() {
		s.cache.EXPECT().Get(gomock.Any(), models.GroupID(6)).Return(nil, int64(0), false, errors.New("timeout"))
		s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(6)).Return(nil, nil)

		out, err := s.service.HistoryOf(ctx, 6)
		s.Require().NoError(err)
		s.NotNil(out)
		s.Empty(out)
	})

	s.Run("write errors are not fatal", func() {
		s.cache.EXPECT().Get(gomock.Any(), models.GroupID(8)).Return(nil, int64(1), false, nil)
		s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(8)).Return(cached, nil)
		s.cache.EXPECT().Set(gomock.Any(), models.GroupID(8), int64(1), cached).Return(false, errors.New("timeout"))

		out, err := s.service.HistoryOf(ctx, 8)
		s.Require().NoError(err)
		s.Equal(cached, out)
	})

	s.Run("store failure surfaces", func() {
		s.cache.EXPECT().Get(gomock.Any(), models.GroupID(7)).Return(nil, int64(0), false, nil)
		s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(7)).Return(nil, sentinel.ErrUnavailable)

		_, err := s.service.HistoryOf(ctx, 7)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// versionedCache backs the mocked HistoryCache with the same compare-and-set
// rule the Redis cache applies.
type versionedCache struct {
	version int64
	entry   []*models.HistoryRecord
}

func (c *versionedCache) bind(m *mocks.MockHistoryCache) {
	m.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.GroupID) ([]*models.HistoryRecord, int64, bool, error) {
			if c.entry != nil {
				return c.entry, 0, true, nil
			}
			return nil, c.version, false, nil
		}).AnyTimes()
	m.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ models.GroupID, version int64, records []*models.HistoryRecord) (bool, error) {
			if version != c.version {
				return false, nil
			}
			c.entry = records
			return true, nil
		}).AnyTimes()
	m.EXPECT().Invalidate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.GroupID) error {
			c.version++
			c.entry = nil
			return nil
		}).AnyTimes()
}

// TestHistoryFillRacingApply commits an Apply after a reader listed history
// but before it filled the cache; the reader's stale list must not be cached.
func (s *ServiceMocksSuite) TestHistoryFillRacingApply() {
	ctx := context.Background()
	(&versionedCache{}).bind(s.cache)

	retiredFirst := &models.HistoryRecord{ID: 1, GroupID: 2, ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ValidTo: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	retiredSecond := &models.HistoryRecord{ID: 2, GroupID: 2, ValidFrom: retiredFirst.ValidTo, ValidTo: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}
	prev := &models.CurrentRecord{ID: 3, GroupID: 2, Attributes: validSnapshot(), CreatedAt: retiredSecond.ValidFrom, IsCurrent: true}

	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(s.runFn)
	s.store.EXPECT().CreateChangeSet(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().FindMatchingGroup(gomock.Any(), gomock.Any()).Return(models.GroupID(2), nil)
	s.store.EXPECT().FindLatestCurrent(gomock.Any(), models.GroupID(2)).Return(prev, nil)
	s.store.EXPECT().InsertCurrent(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().InsertHistory(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().RetireCurrent(gomock.Any(), models.RecordID(3)).Return(nil)
	s.outbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	first := s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(2)).DoAndReturn(
		func(context.Context, models.GroupID) ([]*models.HistoryRecord, error) {
			_, err := s.service.Apply(ctx, validSnapshot(), nil)
			s.Require().NoError(err)
			return []*models.HistoryRecord{retiredFirst}, nil
		})
	s.store.EXPECT().ListHistory(gomock.Any(), models.GroupID(2)).
		Return([]*models.HistoryRecord{retiredFirst, retiredSecond}, nil).
		After(first)

	stale, err := s.service.HistoryOf(ctx, 2)
	s.Require().NoError(err)
	s.Len(stale, 1, "the racing reader still answers with what it read")

	history, err := s.service.HistoryOf(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(history, 2, "history committed by the racing apply must be visible")

	cached, err := s.service.HistoryOf(ctx, 2)
	s.Require().NoError(err)
	s.Len(cached, 2, "the fresh list is cached")
}

func (s *ServiceMocksSuite) TestStateAtReadErrors() {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store.EXPECT().FindCurrentAsOf(gomock.Any(), models.GroupID(1), at).Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().FindHistoryAt(gomock.Any(), models.GroupID(1), at).Return(nil, context.DeadlineExceeded)

	_, err := s.service.StateAt(context.Background(), 1, at)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}
