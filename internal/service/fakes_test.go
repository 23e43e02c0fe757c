package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/events"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  map[string][]string
	err   error
	calls int
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(map[string][]string)}
}

func (m *fakeMailer) Deliver(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sent[to] = append(m.sent[to], code)
	return nil
}

func (m *fakeMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.sent[to]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

type fakeUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	createErr error
	lastLimit int
	nextID    int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.IsActive = true
	user.Level = 1
	user.CreatedAt = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) TopByLevel(_ context.Context, limit int) ([]domain.RankingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	entries := make([]domain.RankingEntry, 0, len(r.byID))
	for _, u := range r.byID {
		entries = append(entries, domain.RankingEntry{UserID: u.ID, Email: u.Email, Level: u.Level, Exp: u.Exp})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		return entries[i].Exp > entries[j].Exp
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}
