package panel_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/revisant/dictum/internal/adapter/panel"
	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
)

func snapshot() project.Snapshot {
	return project.Snapshot{
		ProjectID:      "p-1",
		Name:           "Warehouse expansion",
		BudgetEstimate: 120000,
		Stage:          "budget",
		Pass:           1,
	}
}

func TestInvokeNormalizesDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/budget_auditor/review" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var snap project.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			t.Errorf("decode snapshot: %v", err)
		}
		if snap.ProjectID != "p-1" {
			t.Errorf("snapshot project = %s", snap.ProjectID)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"decision": "Aprobado",
			"analysis": "budget is sound",
		})
	}))
	defer srv.Close()

	c := panel.NewClient(srv.URL, 5*time.Second)
	v, err := c.Invoke(t.Context(), "budget_auditor", snapshot())
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if v.Decision != deliberation.DecisionApprove {
		t.Errorf("decision = %s, want approve", v.Decision)
	}
	if v.Analysis != "budget is sound" {
		t.Errorf("analysis = %q", v.Analysis)
	}
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := panel.NewClient(srv.URL, 50*time.Millisecond)
	_, err := c.Invoke(t.Context(), "registrar", snapshot())
	if !errors.Is(err, domain.ErrCollaboratorTimeout) {
		t.Errorf("error = %v, want ErrCollaboratorTimeout", err)
	}
}

func TestInvokeRejectsUnknownDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"decision": "perhaps"})
	}))
	defer srv.Close()

	c := panel.NewClient(srv.URL, time.Second)
	if _, err := c.Invoke(t.Context(), "registrar", snapshot()); err == nil {
		t.Error("unknown decision accepted")
	}
}

func TestInvokeSurfacesPanelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "agent offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := panel.NewClient(srv.URL, time.Second)
	if _, err := c.Invoke(t.Context(), "registrar", snapshot()); err == nil {
		t.Error("panel 502 accepted")
	}
}
