package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fraudgate/fraudgate/internal/adapter/litellm"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/port/eventbus"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
	"github.com/fraudgate/fraudgate/internal/service"
)

// Handlers bundles the services the REST surface exposes.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Tools        *service.ToolsService
	Auth         *service.AuthService
	Results      resultstore.Store
	LiteLLM      *litellm.Client
	Bus          eventbus.Bus
}

// ProcessTransaction handles POST /api/v1/transactions/process.
// The response is always a ProcessResult, fatal errors included; clients
// inspect process_complete.
func (h *Handlers) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := readJSON[transaction.Transaction](w, r)
	if !ok {
		return
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.Orchestrator.ProcessTransaction(r.Context(), &tx)
	writeJSON(w, http.StatusOK, res)
}

// reviewResponse pairs the workflow record with the live session transcript.
type reviewResponse struct {
	Result  any `json:"result"`
	Session any `json:"session"`
}

// OpenReview handles POST /api/v1/reviews: it opens a manual review session
// for the submitted transaction.
func (h *Handlers) OpenReview(w http.ResponseWriter, r *http.Request) {
	tx, ok := readJSON[transaction.Transaction](w, r)
	if !ok {
		return
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, sess, err := h.Orchestrator.OpenReview(r.Context(), &tx)
	if err != nil {
		if res != nil {
			// Assessment failed; the error-shaped result is the response.
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reviewResponse{Result: res, Session: sess})
}

// GetReview handles GET /api/v1/reviews/{id}, where id is the result ID
// returned by OpenReview.
func (h *Handlers) GetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Results.GetResult(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "review not found")
		return
	}
	if res.SessionID == "" {
		writeError(w, http.StatusNotFound, "review has no session")
		return
	}
	sess, err := h.Results.GetSession(r.Context(), res.SessionID)
	if err != nil {
		writeStoreError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Result: res, Session: sess})
}

// PostReviewMessage handles POST /api/v1/reviews/{id}/messages: one reviewer
// turn against a stored session.
func (h *Handlers) PostReviewMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := readJSON[struct {
		Message string `json:"message"`
	}](w, r)
	if !ok {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	res, sess, err := h.Orchestrator.ReviewTurn(r.Context(), id, req.Message)
	if err != nil {
		if sess == nil && res == nil {
			writeStoreError(w, err, "review not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Result: res, Session: sess})
}

// GetResult handles GET /api/v1/results/{id}.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Results.GetResult(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "result not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTools handles GET /api/v1/tools: the lookup tools a session may call.
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Tools.Descriptors())
}

// LLMHealth handles GET /api/v1/llm/health.
func (h *Handlers) LLMHealth(w http.ResponseWriter, r *http.Request) {
	healthy, err := h.LiteLLM.Health(r.Context())
	status := "healthy"
	if !healthy || err != nil {
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
