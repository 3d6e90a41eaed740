// Package handler is the thin HTTP layer over the activity log. It delegates
// to the recorder and feed services so transport concerns remain isolated.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pactum/internal/activity"
	"pactum/internal/activity/feed"
	"pactum/internal/activity/recorder"
	"pactum/internal/activity/retention"
	dErrors "pactum/pkg/domain-errors"
	"pactum/pkg/platform/httputil"
	"pactum/pkg/requestcontext"
)

// RecorderService is the ingestion boundary consumed by the POST handler.
type RecorderService interface {
	Record(ctx context.Context, in recorder.Input) (activity.Event, error)
}

// FeedService is the query boundary consumed by the GET handler.
type FeedService interface {
	Query(ctx context.Context, q feed.Query) ([]activity.Event, error)
}

// RetentionReporter exposes sweeper health for the health endpoint.
type RetentionReporter interface {
	Healthy() bool
	Status() retention.Status
}

// Handler wires the activity log endpoints.
type Handler struct {
	recorder  RecorderService
	feed      FeedService
	retention RetentionReporter
	logger    *slog.Logger
}

// New creates a Handler. retention may be nil when no sweeper runs in
// process.
func New(rec RecorderService, feedSvc FeedService, ret RetentionReporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{recorder: rec, feed: feedSvc, retention: ret, logger: logger}
}

// Register mounts the activity log routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/activity-logs", h.handleRecord)
	r.Get("/activity-logs", h.handleFeed)
	r.Get("/health", h.handleHealth)
}

type recordRequest struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Changes    map[string]any `json:"changes"`
	Actor      activity.Actor `json:"actor"`
}

type recordResponse struct {
	ID string `json:"id"`
}

// handleRecord ingests one mutation event. The actor comes from the request
// body, falling back to the authenticated identity from the bearer token.
func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[recordRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := req.Actor
	if actor.ID == "" && actor.Name == "" {
		actor = activity.Actor{
			ID:   requestcontext.ActorID(ctx),
			Name: requestcontext.ActorName(ctx),
		}
	}

	event, err := h.recorder.Record(ctx, recorder.Input{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Action:     req.Action,
		Changes:    req.Changes,
		Actor:      actor,
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "invalid activity event rejected",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		} else {
			h.logger.ErrorContext(ctx, "activity event ingestion failed",
				"request_id", requestcontext.RequestID(ctx),
				"entity_type", req.EntityType,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, recordResponse{ID: event.ID})
}

// feedEntry is the external representation of one event. Summary is computed
// lazily at read time.
type feedEntry struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Changes    map[string]any `json:"changes"`
	UserName   string         `json:"user_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Summary    string         `json:"summary,omitempty"`
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := feed.Query{EntityType: r.URL.Query().Get("entity_type")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}

	events, err := h.feed.Query(ctx, q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries := make([]feedEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, feedEntry{
			ID:         event.ID,
			EntityType: string(event.EntityType),
			EntityID:   event.EntityID,
			Action:     string(event.Action),
			Changes:    event.Changes,
			UserName:   event.UserName,
			Timestamp:  event.Timestamp,
			Summary:    activity.SummaryText(event),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Retention *retention.Status `json:"retention,omitempty"`
}

// handleHealth reports liveness plus the retention health signal. A sweeper
// falling behind degrades the report but the service keeps serving.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC()}
	if h.retention != nil {
		status := h.retention.Status()
		resp.Retention = &status
		if !h.retention.Healthy() {
			resp.Status = "degraded"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
