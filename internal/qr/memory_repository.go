package qr

import (
    "context"
    "errors"
    "sort"
    "sync"
)

type memoryRepository struct {
    mu       sync.RWMutex
    payments map[string]Payment
}

// NewMemoryRepository constructs an in-memory payment store for tests and local runs.
func NewMemoryRepository() Repository {
    return &memoryRepository{payments: make(map[string]Payment)}
}

func (r *memoryRepository) Create(_ context.Context, p Payment) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, exists := r.payments[p.ID]; exists {
        return errors.New("payment exists")
    }
    r.payments[p.ID] = p
    return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Payment, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    var out []Payment
    for _, p := range r.payments {
        if p.UserID == userID {
            out = append(out, p)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}
