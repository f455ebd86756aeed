package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Automated workflow
		r.Post("/transactions/process", h.ProcessTransaction)

		// Manual review sessions
		r.Post("/reviews", h.OpenReview)
		r.Get("/reviews/{id}", h.GetReview)
		r.Post("/reviews/{id}/messages", h.PostReviewMessage)

		// Workflow records
		r.Get("/results/{id}", h.GetResult)

		// Lookup tools advertised to sessions
		r.Get("/tools", h.ListTools)

		// Collaborator backend health
		r.Get("/llm/health", h.LLMHealth)
	})
}
