package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"personvault/internal/person/matching"
	"personvault/internal/person/models"
	"personvault/internal/person/outbox"
	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/platform/sentinel"
	"personvault/pkg/requestcontext"
)

// Resolve returns the identity group the snapshot belongs to, if any. It
// never writes.
func (s *Service) Resolve(ctx context.Context, snap models.Snapshot) (models.GroupID, bool, error) {
	ctx, span := s.tracer.Start(ctx, "person.Resolve")
	defer span.End()
	start := time.Now()
	defer s.observe(func() { s.metrics.ObserveResolve(start) })

	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return 0, false, err
	}

	groupID, err := s.store.FindMatchingGroup(ctx, matching.FromSnapshot(snap))
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return 0, false, translateReadErr(err, "failed to resolve snapshot")
	}
	span.SetAttributes(attribute.Int64("person.group_id", int64(groupID)))
	return groupID, true, nil
}

// CreateChangeSet records an audit grouping that later Apply calls can
// reference.
func (s *Service) CreateChangeSet(ctx context.Context, author, reason string) (*models.ChangeSet, error) {
	cs, err := models.NewChangeSet(author, reason, s.defaultAuthor, s.defaultReason, now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateChangeSet(ctx, cs); err != nil {
		return nil, translateWriteErr(err)
	}
	return cs, nil
}

// applyOutcome carries what one committed Apply attempt did.
type applyOutcome struct {
	record   *models.CurrentRecord
	newGroup bool
	retired  *models.CurrentRecord
}

// Apply installs the snapshot as the current record of its resolved (or newly
// created) group and retires the previous current record into history, all in
// one transaction. The resolve-then-write sequence runs under the matching
// key's lock so concurrent submissions for the same new person create one
// group.
func (s *Service) Apply(ctx context.Context, snap models.Snapshot, input *models.ChangeSetInput) (*models.CurrentRecord, error) {
	ctx, span := s.tracer.Start(ctx, "person.Apply")
	defer span.End()
	start := time.Now()
	defer s.observe(func() { s.metrics.ObserveApply(start) })

	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	criteria := matching.FromSnapshot(snap)

	var (
		out applyOutcome
		err error
	)
	for attempt := 0; ; attempt++ {
		out, err = s.applyOnce(ctx, snap, criteria, input)
		if err == nil {
			break
		}
		err = translateWriteErr(err)
		if !dErrors.HasCode(err, dErrors.CodeWriteConflict) {
			break
		}
		s.observe(s.metrics.IncrementWriteConflict)
		if attempt >= s.conflictRetries || ctx.Err() != nil {
			break
		}
		s.logger.WarnContext(ctx, "apply write conflict, retrying",
			"request_id", requestcontext.RequestID(ctx),
			"attempt", attempt+1,
			"error", err.Error(),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		s.logger.ErrorContext(ctx, "apply failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return nil, err
	}

	rec := out.record
	span.SetAttributes(
		attribute.Int64("person.group_id", int64(rec.GroupID)),
		attribute.Bool("person.new_group", out.newGroup),
	)
	if out.retired != nil && s.cache != nil {
		if cerr := s.cache.Invalidate(ctx, rec.GroupID); cerr != nil {
			s.logger.WarnContext(ctx, "history cache invalidation failed",
				"group_id", rec.GroupID.String(),
				"error", cerr.Error(),
			)
		}
	}
	s.observe(func() { s.metrics.IncrementApplied(out.newGroup) })
	s.logger.InfoContext(ctx, "snapshot applied",
		"request_id", requestcontext.RequestID(ctx),
		"group_id", rec.GroupID.String(),
		"new_group", out.newGroup,
		"change_set_id", rec.ChangeSetID.String(),
	)
	return rec, nil
}

func (s *Service) applyOnce(ctx context.Context, snap models.Snapshot, criteria matching.Criteria, input *models.ChangeSetInput) (applyOutcome, error) {
	var out applyOutcome
	ts := now(ctx)

	err := s.tx.RunInTx(ctx, criteria.LockKey(), func(ctx context.Context, store Store) error {
		changeSetID, err := s.ensureChangeSet(ctx, store, input, ts)
		if err != nil {
			return err
		}

		groupID, err := store.FindMatchingGroup(ctx, criteria)
		newGroup := false
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			groupID, err = store.CreateGroup(ctx, ts)
			if err != nil {
				return err
			}
			newGroup = true
		case err != nil:
			return err
		}

		var prev *models.CurrentRecord
		if !newGroup {
			prev, err = store.FindLatestCurrent(ctx, groupID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
		}

		rec := &models.CurrentRecord{
			GroupID:     groupID,
			ChangeSetID: changeSetID,
			Attributes:  snap.Clone(),
			CreatedAt:   successorInstant(ts, prev),
			IsCurrent:   true,
		}
		if err := store.InsertCurrent(ctx, rec); err != nil {
			return err
		}

		if prev != nil {
			if err := store.InsertHistory(ctx, models.Retire(prev, rec)); err != nil {
				return err
			}
			if err := store.RetireCurrent(ctx, prev.ID); err != nil {
				return err
			}
		}

		if s.outbox != nil {
			event, err := outbox.NewAppliedEvent(rec, newGroup, prev)
			if err != nil {
				return err
			}
			if err := s.outbox.Append(ctx, event); err != nil {
				return err
			}
		}

		out = applyOutcome{record: rec, newGroup: newGroup, retired: prev}
		return nil
	})
	if err != nil {
		return applyOutcome{}, err
	}
	return out, nil
}

// ensureChangeSet returns the change set the new record is attributed to,
// creating one unless the caller referenced an existing change set.
func (s *Service) ensureChangeSet(ctx context.Context, store Store, input *models.ChangeSetInput, ts time.Time) (uuid.UUID, error) {
	if input.IsReference() {
		cs, err := store.FindChangeSet(ctx, input.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return uuid.Nil, dErrors.New(dErrors.CodeNotFound, "change set not found")
		}
		if err != nil {
			return uuid.Nil, err
		}
		return cs.ID, nil
	}

	var author, reason string
	if input != nil {
		author, reason = input.Author, input.Reason
	}
	cs, err := models.NewChangeSet(author, reason, s.defaultAuthor, s.defaultReason, ts)
	if err != nil {
		return uuid.Nil, err
	}
	if err := store.CreateChangeSet(ctx, cs); err != nil {
		return uuid.Nil, err
	}
	return cs.ID, nil
}

// successorInstant keeps consecutive records strictly ordered: a record never
// starts at or before its predecessor, so every history interval is non-empty.
func successorInstant(ts time.Time, prev *models.CurrentRecord) time.Time {
	if prev != nil && !ts.After(prev.CreatedAt) {
		return prev.CreatedAt.Add(time.Microsecond)
	}
	return ts
}

// now is the request instant at the store's microsecond precision.
func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}

func (s *Service) observe(fn func()) {
	if s.metrics == nil {
		return
	}
	fn()
}
