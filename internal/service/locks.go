package service

import "sync"

// projectLocks serializes mutations per project identifier. Cross-project
// operations never contend; within one project every workflow mutation runs
// under the same mutex, which is what enforces the ≤1 in-flight verdict per
// (project, stage) invariant.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for the given project and returns its unlock
// function. Lock entries are retained for the process lifetime; the map is
// bounded by the number of distinct projects touched.
func (l *projectLocks) acquire(projectID string) func() {
	l.mu.Lock()
	m, ok := l.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[projectID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
