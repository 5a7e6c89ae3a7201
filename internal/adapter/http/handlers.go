package http

import (
	"errors"
	"net/http"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Workflow      *service.WorkflowService
	Reviews       *service.ReviewService
	Deliberations *service.DeliberationService
	Scores        *service.ScoreService
	Defense       *service.DefenseService
}

// SubmitProject handles POST /api/v1/projects.
func (h *Handlers) SubmitProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.SubmitRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Workflow.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Workflow.ListProjects(r.Context())
	if err != nil {
		writeDomainError(w, err, "projects not found")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetWorkflowStatus handles GET /api/v1/projects/{id}: the project with its
// current stage, derived score, and a side-effect-free gate preview.
func (h *Handlers) GetWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Workflow.GetStatus(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ArchiveProject handles DELETE /api/v1/projects/{id}. Projects are never
// deleted, only soft-archived.
func (h *Handlers) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Workflow.Archive(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResubmitProject handles POST /api/v1/projects/{id}/resubmit.
func (h *Handlers) ResubmitProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.ResubmitRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Workflow.Resubmit(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type evidenceRequest struct {
	Items map[string]string `json:"items"`
}

// AttachEvidence handles POST /api/v1/projects/{id}/evidence.
func (h *Handlers) AttachEvidence(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[evidenceRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Workflow.AttachEvidence(r.Context(), urlParam(r, "id"), req.Items)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RecordDeliberation handles POST /api/v1/projects/{id}/deliberations. A
// gate refusal still records the verdict; the 422 body carries the missing
// predicate names alongside the recorded outcome.
func (h *Handlers) RecordDeliberation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.RecordRequest](w, r)
	if !ok {
		return
	}

	res, err := h.Workflow.RecordDeliberation(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		var gateErr *domain.GateError
		if errors.As(err, &gateErr) && res != nil {
			writeJSON(w, http.StatusUnprocessableEntity, gateRefusal{
				Error:   gateErr.Error(),
				Stage:   gateErr.Stage,
				Missing: gateErr.Missing,
				Result:  res,
			})
			return
		}
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type gateRefusal struct {
	Error   string                `json:"error"`
	Stage   string                `json:"stage"`
	Missing []string              `json:"missing"`
	Result  *service.RecordResult `json:"result"`
}

// ReviewStage handles POST /api/v1/projects/{id}/review: invokes the owning
// agent for the current stage and records the verdict.
func (h *Handlers) ReviewStage(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reviews.ReviewStage(r.Context(), urlParam(r, "id"))
	if err != nil {
		var gateErr *domain.GateError
		if errors.As(err, &gateErr) && res != nil {
			writeJSON(w, http.StatusUnprocessableEntity, gateRefusal{
				Error:   gateErr.Error(),
				Stage:   gateErr.Stage,
				Missing: gateErr.Missing,
				Result:  res,
			})
			return
		}
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListDeliberations handles GET /api/v1/projects/{id}/deliberations: the
// full ordered ledger.
func (h *Handlers) ListDeliberations(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Deliberations.ListForProject(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetComplianceScore handles GET /api/v1/projects/{id}/score.
func (h *Handlers) GetComplianceScore(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scores.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetDefenseFile handles GET /api/v1/projects/{id}/defense: the latest
// compiled version.
func (h *Handlers) GetDefenseFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.Defense.GetLatest(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "defense file not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ListDefenseFiles handles GET /api/v1/projects/{id}/defense/versions.
func (h *Handlers) ListDefenseFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.Defense.ListVersions(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// ListIncidences handles GET /api/v1/incidences: non-approve deliberations
// across the company's projects.
func (h *Handlers) ListIncidences(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Deliberations.Incidences(r.Context())
	if err != nil {
		writeDomainError(w, err, "incidences not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRoster handles GET /api/v1/roster: the active stage roster.
func (h *Handlers) GetRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Workflow.Roster().Stages())
}
