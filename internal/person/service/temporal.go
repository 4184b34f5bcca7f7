package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"personvault/internal/person/models"
	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/platform/sentinel"
)

// StateAt reconstructs the group's attributes as of at. A live record created
// at or before at wins; otherwise the history interval containing at answers.
// Unknown groups and instants before the first record yield nil.
func (s *Service) StateAt(ctx context.Context, groupID models.GroupID, at time.Time) (*models.AttributeState, error) {
	ctx, span := s.tracer.Start(ctx, "person.StateAt")
	defer span.End()
	span.SetAttributes(attribute.Int64("person.group_id", int64(groupID)))
	start := time.Now()
	defer s.observe(func() { s.metrics.ObserveStateAt(start) })

	if groupID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "group id must be positive")
	}
	at = at.UTC()

	current, err := s.store.FindCurrentAsOf(ctx, groupID, at)
	if err == nil {
		return current.State(), nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translateReadErr(err, "failed to load current record")
	}

	hist, err := s.store.FindHistoryAt(ctx, groupID, at)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadErr(err, "failed to load history record")
	}
	return hist.State(), nil
}

// HistoryOf lists the group's retired states ascending by valid_from. The
// result is empty, not an error, for groups without history.
func (s *Service) HistoryOf(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error) {
	ctx, span := s.tracer.Start(ctx, "person.HistoryOf")
	defer span.End()
	span.SetAttributes(attribute.Int64("person.group_id", int64(groupID)))

	if groupID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "group id must be positive")
	}

	// fill stays false when the cache could not report a version.
	var (
		version int64
		fill    bool
	)
	if s.cache != nil {
		records, v, ok, err := s.cache.Get(ctx, groupID)
		switch {
		case err != nil:
			s.observe(func() { s.metrics.RecordHistoryCache("error") })
			s.logger.WarnContext(ctx, "history cache read failed",
				"group_id", groupID.String(),
				"error", err.Error(),
			)
		case ok:
			s.observe(func() { s.metrics.RecordHistoryCache("hit") })
			return records, nil
		default:
			s.observe(func() { s.metrics.RecordHistoryCache("miss") })
			version, fill = v, true
		}
	}

	records, err := s.store.ListHistory(ctx, groupID)
	if err != nil {
		return nil, translateReadErr(err, "failed to list history")
	}
	if records == nil {
		records = []*models.HistoryRecord{}
	}

	if fill {
		stored, err := s.cache.Set(ctx, groupID, version, records)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "history cache write failed",
				"group_id", groupID.String(),
				"error", err.Error(),
			)
		case !stored:
			s.logger.DebugContext(ctx, "history cache fill superseded by a commit",
				"group_id", groupID.String(),
			)
		}
	}
	return records, nil
}

// SearchCurrent lists live records matching every non-empty filter field,
// ordered by group id.
func (s *Service) SearchCurrent(ctx context.Context, filter models.SearchFilter) ([]*models.AttributeState, error) {
	filter.Normalize(s.maxSearchLimit)
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	records, err := s.store.SearchCurrent(ctx, filter)
	if err != nil {
		return nil, translateReadErr(err, "failed to search persons")
	}
	states := make([]*models.AttributeState, 0, len(records))
	for _, r := range records {
		states = append(states, r.State())
	}
	return states, nil
}
