package renewals

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository is a process-local Repository used by the memory backend
// and by service tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]models.RenewalRecord
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]models.RenewalRecord), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, rec *models.RenewalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return common.ErrAlreadyExists
	}
	rec.CreatedAt = r.now().UTC()
	rec.Revoked = false
	rec.RevokedAt = nil
	r.records[rec.ID] = *rec
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.RenewalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if rec.RevokedAt != nil {
		t := *rec.RevokedAt
		rec.RevokedAt = &t
	}
	return &rec, nil
}

func (r *MemoryRepository) MarkRevoked(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return common.ErrorNotFound
	}
	if rec.Revoked {
		return common.ErrAlreadyRevoked
	}
	r.revoke(&rec)
	r.records[id] = rec
	return nil
}

func (r *MemoryRepository) MarkAllRevokedForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.records {
		if rec.UserID != userID || rec.Revoked {
			continue
		}
		r.revoke(&rec)
		r.records[id] = rec
		n++
	}
	return n, nil
}

// Len reports how many records exist, revoked or not.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *MemoryRepository) revoke(rec *models.RenewalRecord) {
	t := r.now().UTC()
	rec.Revoked = true
	rec.RevokedAt = &t
}
