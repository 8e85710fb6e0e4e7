package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"roombook/internal/domains/reservation/event"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/repository"
	"roombook/shared/cache"
	gDto "roombook/shared/dto"
)

// memoryRepository mirrors the postgres adapter: conditional updates match on the stored status.
type memoryRepository struct {
	mu   sync.Mutex
	rows map[string]model.Reservation
	err  error

	// statusErr is returned by UpdateStatus without touching the row, like a constraint violation.
	statusErr error
}

func newMemoryRepository(rows ...model.Reservation) *memoryRepository {
	repo := &memoryRepository{rows: map[string]model.Reservation{}}
	for _, r := range rows {
		repo.rows[r.ID] = r
	}

	return repo
}

func (m *memoryRepository) get(id string) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rows[id]
}

func (m *memoryRepository) all() []model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Reservation, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b model.Reservation) int { return a.StartAt.Compare(b.StartAt) })

	return out
}

func (m *memoryRepository) filter(keep func(model.Reservation) bool) ([]model.Reservation, error) {
	if m.err != nil {
		return nil, m.err
	}

	var out []model.Reservation

	for _, r := range m.all() {
		if keep(r) {
			out = append(out, r)
		}
	}

	return out, nil
}

func (m *memoryRepository) Create(_ context.Context, reservation model.Reservation) error {
	if m.err != nil {
		return m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[reservation.ID] = reservation

	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (model.Reservation, error) {
	if m.err != nil {
		return model.Reservation{}, m.err
	}

	return m.get(id), nil
}

func (m *memoryRepository) FindOverlapping(_ context.Context, query repository.OverlapQuery) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		if query.RoomID != "" && r.RoomID != query.RoomID {
			return false
		}

		if query.RequesterID != "" && r.RequesterID != query.RequesterID {
			return false
		}

		if len(query.Statuses) > 0 && !slices.Contains(query.Statuses, r.Status) {
			return false
		}

		if query.ExcludeID != "" && r.ID == query.ExcludeID {
			return false
		}

		return r.StartAt.Before(query.End) && r.EndAt.After(query.Start)
	})
}

func (m *memoryRepository) FindByRequesterAndDay(_ context.Context, requesterID string, dayStart, dayEnd time.Time) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return r.RequesterID == requesterID && !r.StartAt.Before(dayStart) && r.StartAt.Before(dayEnd)
	})
}

func (m *memoryRepository) FindStartingBetween(_ context.Context, from, to time.Time, statuses ...model.Status) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return !r.StartAt.Before(from) && !r.StartAt.After(to) && (len(statuses) == 0 || slices.Contains(statuses, r.Status))
	})
}

func (m *memoryRepository) FindByRequester(_ context.Context, requesterID string) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool { return r.RequesterID == requesterID })
}

func (m *memoryRepository) UpdateStatus(_ context.Context, update repository.StatusUpdate) error {
	if m.err != nil {
		return m.err
	}

	if m.statusErr != nil {
		return m.statusErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[update.ID]
	if !ok || row.Status != update.From {
		return model.Reject(model.ReasonInvalidTransition, "reservation is no longer "+string(update.From))
	}

	row.Status = update.To
	row.DecidedAt = update.DecidedAt
	row.DecidedBy = update.DecidedBy
	row.DecisionComment = update.DecisionComment
	row.ModifiedAt = update.ModifiedAt
	row.ModifiedBy = update.ModifiedBy
	m.rows[update.ID] = row

	return nil
}

func (m *memoryRepository) UpdateInterval(_ context.Context, update repository.IntervalUpdate) error {
	if m.err != nil {
		return m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[update.ID]
	if !ok || row.Status != update.From {
		return model.Reject(model.ReasonInvalidTransition, "reservation is no longer "+string(update.From))
	}

	row.StartAt = update.Start
	row.EndAt = update.End
	row.Description = update.Description
	row.ModifiedAt = update.ModifiedAt
	row.ModifiedBy = update.ModifiedBy
	m.rows[update.ID] = row

	return nil
}

func (m *memoryRepository) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Reservation, error) {
	return m.filter(func(model.Reservation) bool { return true })
}

func (m *memoryRepository) Count(_ context.Context, _ gDto.FilterGroup) (int, error) {
	rows, err := m.filter(func(model.Reservation) bool { return true })

	return len(rows), err
}

// memoryCache round-trips values through JSON like the redis implementation.
type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memoryCache) Save(_ context.Context, key string, value any, duration int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = data
	c.ttls[key] = duration

	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, value any) error {
	c.mu.Lock()
	data, ok := c.values[key]
	c.mu.Unlock()

	if !ok {
		return cache.Nil
	}

	return json.Unmarshal(data, value)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)

	return nil
}

func (c *memoryCache) Clear(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}

	return nil
}

func (c *memoryCache) SaveIfAbsent(ctx context.Context, key string, value any, duration int) (bool, error) {
	c.mu.Lock()
	_, exists := c.values[key]
	c.mu.Unlock()

	if exists {
		return false, nil
	}

	return true, c.Save(ctx, key, value, duration)
}

func (c *memoryCache) ttl(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttls[key]
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.values[key]

	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, events...)

	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}

	return out
}

var errDatabase = errors.New("database unavailable")
