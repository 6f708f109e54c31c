package saga

import "sync"

// leaseManager serializes deployments per target. A lease is held from just
// before the backup watershed until the deployment reaches a terminal status,
// so two sagas can never interleave backup/deploy/restore on the same path.
type leaseManager struct {
	mu   sync.Mutex
	held map[string]string // target key -> deployment ID
}

func newLeaseManager() *leaseManager {
	return &leaseManager{held: make(map[string]string)}
}

// acquire takes the lease for key on behalf of a deployment. It returns false
// when another deployment already holds it; there is no queueing.
func (l *leaseManager) acquire(key, deploymentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = deploymentID
	return true
}

func (l *leaseManager) release(key string) {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
}
