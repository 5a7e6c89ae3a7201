package ws

import (
	"context"
	"testing"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestConnWants(t *testing.T) {
	tests := []struct {
		name         string
		connCompany  string
		connProject  string
		eventCompany string
		eventProject string
		wantDelivery bool
	}{
		{"same company, no project filter", "co-1", "", "co-1", "p-1", true},
		{"other company filtered out", "co-1", "", "co-2", "p-1", false},
		{"matching project filter", "co-1", "p-1", "co-1", "p-1", true},
		{"other project filtered out", "co-1", "p-1", "co-1", "p-2", false},
		{"unscoped message reaches everyone", "co-1", "p-1", "", "", true},
		{"unscoped connection receives everything", "", "", "co-2", "p-9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &conn{companyID: tt.connCompany, projectID: tt.connProject}
			if got := c.wants(tt.eventCompany, tt.eventProject); got != tt.wantDelivery {
				t.Errorf("wants(%q, %q) = %v, want %v",
					tt.eventCompany, tt.eventProject, got, tt.wantDelivery)
			}
		})
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub()

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventNoConnections(t *testing.T) {
	hub := NewHub()

	// BroadcastEvent with no connections should not panic.
	hub.BroadcastEvent(context.Background(), EventStageChanged, StageChangedEvent{
		ProjectID: "p1",
		CompanyID: "co-1",
		FromStage: "intake",
		ToStage:   "business_purpose",
		Pass:      1,
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()

	// A channel cannot be marshaled to JSON; the hub logs and drops it.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()

	// Removing a connection that was never added should not panic.
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &conn{ws: nil, cancel: cancel}
	hub.remove(c)

	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}
