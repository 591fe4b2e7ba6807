package device

import (
    "context"
    "errors"
    "sort"
    "sync"
)

type memoryRepository struct {
    mu      sync.RWMutex
    storage map[string]Device
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
func NewMemoryRepository() Repository {
    return &memoryRepository{storage: make(map[string]Device)}
}

func (r *memoryRepository) Create(_ context.Context, device Device) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, exists := r.storage[device.ID]; exists {
        return errors.New("device exists")
    }
    r.storage[device.ID] = device
    return nil
}

func (r *memoryRepository) Get(_ context.Context, userID, id string) (Device, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    device, ok := r.storage[id]
    if !ok || device.UserID != userID {
        return Device{}, ErrNotFound
    }
    return device, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Device, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    var out []Device
    for _, device := range r.storage {
        if device.UserID == userID {
            out = append(out, device)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].CreatedAt.Before(out[j].CreatedAt)
    })
    return out, nil
}
