package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	nextID  int
	updates []ports.UserUpdate
	deleted []string

	createErr error // if set, Create returns this error
	findErr   error // if set, FindByEmail and FindByID return this error
	listCalls int
	lastList  ports.ListUsersFilter
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// seed stores u as-is, keeping its ID.
func (r *stubUserRepo) seed(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = cloneUser(u)
	return cloneUser(u)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u%d", r.nextID)
	r.byID[created.ID] = created
	return cloneUser(created), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, update ports.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	r.updates = append(r.updates, update)
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubUserRepo) ListAll(_ context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.lastList = filter

	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		excluded := false
		for _, role := range filter.ExcludeRoles {
			if u.Role == role {
				excluded = true
			}
		}
		if !excluded {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Other stubs
// ---------------------------------------------------------------------------

// countingHasher treats "hash:<plaintext>" as the digest of plaintext.
type countingHasher struct {
	hashCalls   int
	verifyCalls int
	hashErr     error
}

func (h *countingHasher) Hash(plaintext string) (string, error) {
	h.hashCalls++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + plaintext, nil
}

func (h *countingHasher) Verify(plaintext, digest string) bool {
	h.verifyCalls++
	return digest == "hash:"+plaintext
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) last() (domain.AuditEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return domain.AuditEvent{}, false
	}
	return a.events[len(a.events)-1], true
}

var errDatabase = errors.New("database error")
