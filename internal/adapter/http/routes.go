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

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.SubmitProject)
		r.Get("/projects/{id}", h.GetWorkflowStatus)
		r.Delete("/projects/{id}", h.ArchiveProject)
		r.Post("/projects/{id}/resubmit", h.ResubmitProject)
		r.Post("/projects/{id}/evidence", h.AttachEvidence)

		// Deliberations (nested under projects)
		r.Post("/projects/{id}/deliberations", h.RecordDeliberation)
		r.Get("/projects/{id}/deliberations", h.ListDeliberations)

		// Stage review via the external collaborator panel
		r.Post("/projects/{id}/review", h.ReviewStage)

		// Aggregations
		r.Get("/projects/{id}/score", h.GetComplianceScore)
		r.Get("/projects/{id}/defense", h.GetDefenseFile)
		r.Get("/projects/{id}/defense/versions", h.ListDefenseFiles)

		// Cross-project views
		r.Get("/incidences", h.ListIncidences)
		r.Get("/roster", h.GetRoster)
	})
}
