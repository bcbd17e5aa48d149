package history

import (
	"context"
	"sync"
	"time"

	"equipment-analytics-api/models"
)

// MemoryStore is an in-process Store. Every owner has its own shard, so a
// writer only blocks readers of the same owner.
type MemoryStore struct {
	mu     sync.Mutex
	shards map[uint]*shard
	nextID uint64
	now    func() time.Time
}

type shard struct {
	mu sync.RWMutex
	// items is kept oldest first.
	items []models.Dataset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shards: make(map[uint]*shard),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) shard(owner uint, create bool) *shard {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shards[owner]
	if !ok && create {
		sh = &shard{}
		s.shards[owner] = sh
	}
	return sh
}

func (s *MemoryStore) allocateID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) Put(ctx context.Context, d *models.Dataset) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := s.shard(d.OwnerID, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	d.ID = s.allocateID()
	if d.UploadedAt.IsZero() {
		d.UploadedAt = s.now()
	}

	ids := make([]uint64, len(sh.items))
	for i := range sh.items {
		ids[i] = sh.items[i].ID
	}
	evicted := evictOldest(ids)
	sh.items = sh.items[len(evicted):]
	sh.items = append(append([]models.Dataset(nil), sh.items...), *d)
	sortOldestFirst(sh.items)

	return evicted, nil
}

func (s *MemoryStore) List(ctx context.Context, owner uint) ([]models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(owner, false)
	if sh == nil {
		return []models.Dataset{}, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	out := make([]models.Dataset, 0, len(sh.items))
	for i := len(sh.items) - 1; i >= 0; i-- {
		out = append(out, sh.items[i])
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, owner uint, id uint64) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(owner, false)
	if sh == nil {
		return nil, &NotFoundError{ID: id}
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	for i := range sh.items {
		if sh.items[i].ID == id {
			d := sh.items[i]
			return &d, nil
		}
	}
	return nil, &NotFoundError{ID: id}
}

func (s *MemoryStore) Delete(ctx context.Context, owner uint, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(owner, false)
	if sh == nil {
		return &NotFoundError{ID: id}
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	for i := range sh.items {
		if sh.items[i].ID == id {
			items := make([]models.Dataset, 0, len(sh.items)-1)
			items = append(items, sh.items[:i]...)
			sh.items = append(items, sh.items[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{ID: id}
}
