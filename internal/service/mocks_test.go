package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/defense"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/port/broadcast"
	"github.com/revisant/dictum/internal/port/collaborator"
	"github.com/revisant/dictum/internal/port/database"
	"github.com/revisant/dictum/internal/port/ledger"
	"github.com/revisant/dictum/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store.
type mockStore struct {
	mu       sync.Mutex
	projects map[string]project.Project
	defenses []defense.File
}

var _ database.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{projects: make(map[string]project.Project)}
}

func (m *mockStore) CreateProject(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = *p
	return nil
}

func (m *mockStore) GetProject(_ context.Context, id string) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
	}
	out := p
	out.Evidence = make(map[string]string, len(p.Evidence))
	for k, v := range p.Evidence {
		out.Evidence[k] = v
	}
	return &out, nil
}

func (m *mockStore) UpdateProject(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.projects[p.ID]
	if !ok {
		return fmt.Errorf("update project %s: %w", p.ID, domain.ErrNotFound)
	}
	if cur.Version != p.Version {
		return fmt.Errorf("update project %s: %w", p.ID, domain.ErrConflictingState)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.projects[p.ID] = *p
	return nil
}

func (m *mockStore) ListProjects(_ context.Context) ([]project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Project
	for _, p := range m.projects {
		if p.ArchivedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) ArchiveProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("archive project %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	p.ArchivedAt = &now
	m.projects[id] = p
	return nil
}

func (m *mockStore) AttachEvidence(_ context.Context, projectID string, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return fmt.Errorf("attach evidence %s: %w", projectID, domain.ErrNotFound)
	}
	if p.Evidence == nil {
		p.Evidence = make(map[string]string)
	}
	for k, v := range items {
		p.Evidence[k] = v
	}
	m.projects[projectID] = p
	return nil
}

func (m *mockStore) CreateDefenseFile(_ context.Context, f *defense.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.defenses {
		if existing.ProjectID == f.ProjectID && existing.Version == f.Version {
			return fmt.Errorf("defense file %s v%d: %w", f.ProjectID, f.Version, domain.ErrConflictingState)
		}
	}
	m.defenses = append(m.defenses, *f)
	return nil
}

func (m *mockStore) GetDefenseFile(_ context.Context, projectID string) (*defense.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *defense.File
	for i := range m.defenses {
		f := m.defenses[i]
		if f.ProjectID != projectID {
			continue
		}
		if latest == nil || f.Version > latest.Version {
			latest = &f
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("defense file for %s: %w", projectID, domain.ErrNotFound)
	}
	return latest, nil
}

func (m *mockStore) ListDefenseFiles(_ context.Context, projectID string) ([]defense.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []defense.File
	for _, f := range m.defenses {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	return out, nil
}

// mockLedger is an in-memory append-only ledger.Store. Like the real store,
// Append applies the deliberation and the project transition as one unit:
// failNext simulates a transient write failure where neither lands.
type mockLedger struct {
	mu       sync.Mutex
	entries  []deliberation.Deliberation
	store    *mockStore
	failNext error
}

var _ ledger.Store = (*mockLedger)(nil)

func (m *mockLedger) Append(ctx context.Context, d *deliberation.Deliberation, p *project.Project) (string, error) {
	m.mu.Lock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		m.mu.Unlock()
		return "", fmt.Errorf("append deliberation: %w", err)
	}
	for _, e := range m.entries {
		if e.ProjectID == d.ProjectID && e.Stage == d.Stage && e.AgentID == d.AgentID && e.Pass == d.Pass {
			m.mu.Unlock()
			return "", fmt.Errorf("append deliberation: %w", domain.ErrConflictingState)
		}
	}
	m.mu.Unlock()

	if err := m.store.UpdateProject(ctx, p); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.entries = append(m.entries, *d)
	m.mu.Unlock()
	return d.ID, nil
}

func (m *mockLedger) ListByProject(_ context.Context, projectID string) ([]deliberation.Deliberation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []deliberation.Deliberation
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLedger) CountByProject(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *mockLedger) ListIncidences(_ context.Context, companyID string) ([]deliberation.Deliberation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []deliberation.Deliberation
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.CompanyID == companyID && e.Decision != deliberation.DecisionApprove {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockInvoker returns scripted verdicts per agent.
type mockInvoker struct {
	mu      sync.Mutex
	fn      func(agentID string, snap project.Snapshot) (*collaborator.Verdict, error)
	invoked []string
}

var _ collaborator.Invoker = (*mockInvoker)(nil)

func (m *mockInvoker) Invoke(_ context.Context, agentID string, snap project.Snapshot) (*collaborator.Verdict, error) {
	m.mu.Lock()
	m.invoked = append(m.invoked, agentID)
	m.mu.Unlock()
	return m.fn(agentID, snap)
}

// mockGenerator returns fixed document references.
type mockGenerator struct {
	refs []string
	err  error
}

func (m *mockGenerator) Generate(_ context.Context, _ *deliberation.Deliberation) ([]string, error) {
	return m.refs, m.err
}

// mockCache is a TTL-less in-memory cache that counts hits and misses.
type mockCache struct {
	mu     sync.Mutex
	values map[string][]byte
	hits   int
	misses int
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// mockQueue records published messages and captures the subscribed handler
// so tests can feed it messages directly.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	subject   string
	handler   messagequeue.Handler
	stopped   bool
}

var _ messagequeue.Queue = (*mockQueue)(nil)

func newMockQueue() *mockQueue {
	return &mockQueue{published: make(map[string][][]byte)}
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[subject] = append(m.published[subject], data)
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subject = subject
	m.handler = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopped = true
	}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

// mockBroadcaster records every event handed to the hub port.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	eventType string
	payload   any
}

var _ broadcast.Broadcaster = (*mockBroadcaster)(nil)

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, broadcastCall{eventType: eventType, payload: payload})
}
