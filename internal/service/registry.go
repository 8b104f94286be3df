package service

import (
	"sync"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
)

// candidateRegistry holds the repositories returned by the most recent search
// so that feedback can refer to one by URL alone.
type candidateRegistry struct {
	mu    sync.RWMutex
	repos map[string]models.Repository
}

func newCandidateRegistry() *candidateRegistry {
	return &candidateRegistry{repos: make(map[string]models.Repository)}
}

// replace drops the previous candidate set in favour of repos.
func (r *candidateRegistry) replace(repos []models.Repository) {
	next := make(map[string]models.Repository, len(repos))
	for _, repo := range repos {
		if repo.URL != "" {
			next[repo.URL] = repo
		}
	}
	r.mu.Lock()
	r.repos = next
	r.mu.Unlock()
}

func (r *candidateRegistry) get(url string) (models.Repository, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	repo, ok := r.repos[url]
	return repo, ok
}

func (r *candidateRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.repos)
}

func (r *candidateRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos = make(map[string]models.Repository)
}
