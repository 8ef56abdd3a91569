package blocking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/consultorio-psicologia/booking-admin/internal/redis"
)

type memRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]BlockedSlot
	order []uuid.UUID

	createCalls  int
	failCreateAt int // 1-based call number that fails; 0 never
	failDelete   map[uuid.UUID]error
	listErr      error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[uuid.UUID]BlockedSlot{}, failDelete: map[uuid.UUID]error{}}
}

func (m *memRepo) Create(_ context.Context, slot BlockedSlot) (*BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.failCreateAt != 0 && m.createCalls == m.failCreateAt {
		return nil, errors.New("insert failed")
	}

	slot.ID = uuid.New()
	slot.CreatedAt = time.Now()
	m.rows[slot.ID] = slot
	m.order = append(m.order, slot.ID)
	return &slot, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failDelete[id]; ok {
		return err
	}
	if _, ok := m.rows[id]; !ok {
		return ErrBlockedSlotNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) ListByDate(_ context.Context, date time.Time) ([]BlockedSlot, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(func(b BlockedSlot) bool { return b.BlockedDate.Equal(date) }), nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]BlockedSlot, error) {
	return m.filter(func(b BlockedSlot) bool {
		if f.From != nil && b.BlockedDate.Before(*f.From) {
			return false
		}
		if f.To != nil && b.BlockedDate.After(*f.To) {
			return false
		}
		return true
	}), nil
}

func (m *memRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, b := range m.rows {
		if b.BlockedDate.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) filter(keep func(BlockedSlot) bool) []BlockedSlot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []BlockedSlot
	for _, id := range m.order {
		b, ok := m.rows[id]
		if ok && keep(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BlockedDate.Before(out[j].BlockedDate) })
	return out
}

func (m *memRepo) all() []BlockedSlot {
	return m.filter(func(BlockedSlot) bool { return true })
}

// busyLocker refuses the lock for the listed keys.
type busyLocker struct {
	busy map[string]bool
}

func (l busyLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l.busy[key] {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}
