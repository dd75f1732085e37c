package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/google/uuid"
)

// memUserRepo, UserRepository'nin bellek içi sahtesi.
// sessions bağlıysa UpdatePassword o kullanıcının token'larını da siler;
// failUpdate doluyken hiçbir şey değişmez (rollback).
type memUserRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.User
	failGet    error
	failUpdate error
	sessions   *memRefreshRepo
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*models.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return pkg.Conflict("email already in use")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	r.byID[u.ID] = &c
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	for _, u := range r.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, pkg.ErrNotFound
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, userID, hash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return 0, r.failUpdate
	}
	u, ok := r.byID[userID]
	if !ok {
		return 0, pkg.ErrNotFound
	}
	u.PasswordHash = hash
	if r.sessions == nil {
		return 0, nil
	}
	return r.sessions.DeleteByUserID(ctx, userID)
}

func (r *memUserRepo) setActive(userID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[userID].IsActive = active
}

func (r *memUserRepo) delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, userID)
}

// memRefreshRepo, RefreshTokenRepository'nin bellek içi sahtesi.
// Rotate mutex altında silme + ekleme yapar; SQL transaction'ının
// tek-kazanan davranışını taklit eder.
type memRefreshRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.RefreshToken
	now        func() time.Time
	failRotate error
	rotateHook func() // Rotate'e girmeden önce çağrılır (yarış testleri)
}

func newMemRefreshRepo(now func() time.Time) *memRefreshRepo {
	return &memRefreshRepo{byID: map[string]*models.RefreshToken{}, now: now}
}

func (r *memRefreshRepo) Create(_ context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.byID[t.ID] = &c
	return nil
}

func (r *memRefreshRepo) FindActive(_ context.Context, hash, userID string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.TokenHash == hash && t.UserID == userID && !t.Expired(r.now()) {
			c := *t
			return &c, nil
		}
	}
	return nil, pkg.ErrNotFound
}

func (r *memRefreshRepo) Rotate(_ context.Context, oldID string, next *models.RefreshToken) error {
	if r.rotateHook != nil {
		r.rotateHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRotate != nil {
		return r.failRotate
	}
	if _, ok := r.byID[oldID]; !ok {
		return pkg.ErrNotFound
	}
	delete(r.byID, oldID)
	c := *next
	r.byID[next.ID] = &c
	return nil
}

func (r *memRefreshRepo) DeleteByTokenHash(_ context.Context, hash, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.TokenHash == hash && t.UserID == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRefreshRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.UserID == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRefreshRepo) ListByUserID(_ context.Context, userID string) ([]models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.RefreshToken{}
	for _, t := range r.byID {
		if t.UserID == userID && !t.Expired(r.now()) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (r *memRefreshRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.Expired(r.now()) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRefreshRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// fakeClock, eşzamanlı erişime dayanıklı sahte saat.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingHasher, gerçek hasher'ı sarar ve çağrıları sayar.
type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	hashes   int
	verifies int
}

func (h *countingHasher) Hash(plain string) (string, error) {
	h.mu.Lock()
	h.hashes++
	h.mu.Unlock()
	return h.PasswordHasher.Hash(plain)
}

func (h *countingHasher) Verify(plain, hash string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(plain, hash)
}

func (h *countingHasher) counts() (hashes, verifies int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hashes, h.verifies
}
