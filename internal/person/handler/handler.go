package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"personvault/internal/person/models"
	"personvault/internal/platform/metrics"
	"personvault/internal/platform/middleware"
	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the person operations exposed over HTTP.
type Service interface {
	Resolve(ctx context.Context, snap models.Snapshot) (models.GroupID, bool, error)
	Apply(ctx context.Context, snap models.Snapshot, input *models.ChangeSetInput) (*models.CurrentRecord, error)
	CreateChangeSet(ctx context.Context, author, reason string) (*models.ChangeSet, error)
	StateAt(ctx context.Context, groupID models.GroupID, at time.Time) (*models.AttributeState, error)
	HistoryOf(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error)
	SearchCurrent(ctx context.Context, filter models.SearchFilter) ([]*models.AttributeState, error)
}

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 30 * time.Second
)

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds each request; the context deadline reaches the store.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Handler serves the person and change set endpoints.
type Handler struct {
	logger  *slog.Logger
	persons Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a new person Handler. httpMetrics may be nil.
func New(persons Service, logger *slog.Logger, httpMetrics *metrics.Metrics, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		logger:  logger,
		persons: persons,
		metrics: httpMetrics,
		timeout: requestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the person routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Metrics(h.metrics))
	router.Use(chimw.Timeout(h.timeout))

	router.Post("/persons", h.handleApply)
	router.Post("/persons/resolve", h.handleResolve)
	router.Get("/persons", h.handleSearch)
	router.Get("/persons/{groupID}/as-of", h.handleStateAt)
	router.Get("/persons/{groupID}/history", h.handleHistory)
	router.Post("/change-sets", h.handleCreateChangeSet)

	r.Mount("/", router)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := req.Snapshot()
	if err != nil {
		h.writeError(ctx, w, err, "invalid apply request")
		return
	}

	rec, err := h.persons.Apply(ctx, snap, req.ChangeSetInput())
	if err != nil {
		h.writeError(ctx, w, err, "failed to apply snapshot")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCurrentRecordResponse(rec))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SnapshotRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := req.Snapshot()
	if err != nil {
		h.writeError(ctx, w, err, "invalid resolve request")
		return
	}

	groupID, matched, err := h.persons.Resolve(ctx, snap)
	if err != nil {
		h.writeError(ctx, w, err, "failed to resolve snapshot")
		return
	}
	resp := ResolveResponse{Matched: matched}
	if matched {
		id := int64(groupID)
		resp.GroupID = &id
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := searchFilterFromQuery(r)
	if err != nil {
		h.writeError(ctx, w, err, "invalid search request")
		return
	}

	states, err := h.persons.SearchCurrent(ctx, filter)
	if err != nil {
		h.writeError(ctx, w, err, "failed to search persons")
		return
	}
	resp := SearchResponse{Persons: make([]StateResponse, 0, len(states))}
	for _, st := range states {
		resp.Persons = append(resp.Persons, toStateResponse(st))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStateAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groupID, err := models.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid group id")
		return
	}
	rawAt := r.URL.Query().Get("at")
	if rawAt == "" {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeValidation, "at is required"), "invalid as-of request")
		return
	}
	at, err := time.Parse(time.RFC3339, rawAt)
	if err != nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeValidation, "at must be an RFC 3339 timestamp"), "invalid as-of request")
		return
	}

	state, err := h.persons.StateAt(ctx, groupID, at)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load state")
		return
	}
	if state == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no state recorded for group at the given instant"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(state))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groupID, err := models.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid group id")
		return
	}

	records, err := h.persons.HistoryOf(ctx, groupID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load history")
		return
	}
	resp := HistoryResponse{
		GroupID: int64(groupID),
		History: make([]HistoryRecordResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.History = append(resp.History, toHistoryRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateChangeSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChangeSetRequest
	if !h.decode(w, r, &req) {
		return
	}

	cs, err := h.persons.CreateChangeSet(ctx, req.Author, req.Reason)
	if err != nil {
		h.writeError(ctx, w, err, "failed to create change set")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toChangeSetResponse(cs))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeError logs client errors at warn and everything else at error.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func searchFilterFromQuery(r *http.Request) (models.SearchFilter, error) {
	q := r.URL.Query()
	filter := models.SearchFilter{
		LastName:   q.Get("last_name"),
		FirstName:  q.Get("first_name"),
		MiddleName: q.Get("middle_name"),
		Address:    q.Get("address"),
		Phone:      q.Get("phone"),
		Email:      q.Get("email"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return v, nil
}
