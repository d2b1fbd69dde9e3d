package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/autocabinet/internal/domain/user"
)

// UsersRepo is a map-backed user store for tests and DB_DRIVER=memory.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
	}
}

func (r *UsersRepo) Ping(context.Context) error { return nil }

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByLogin(_ context.Context, login string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Login == login {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Exists(_ context.Context, login, email string) (bool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loginExists, emailExists := r.conflicts(0, login, email)
	return loginExists, emailExists, nil
}

func (r *UsersRepo) Create(_ context.Context, p user.CreateParams) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loginExists, emailExists := r.conflicts(0, p.Login, p.Email)
	if loginExists {
		return user.User{}, user.ErrLoginTaken
	}
	if emailExists {
		return user.User{}, user.ErrEmailTaken
	}

	r.nextID++
	u := user.User{
		ID:           r.nextID,
		Login:        p.Login,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Name:         copyStr(p.Name),
		Phone:        copyStr(p.Phone),
		Address:      copyStr(p.Address),
		CreatedAt:    time.Now().UTC(),
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) Update(_ context.Context, id int64, p user.UpdateParams) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	login, email := u.Login, u.Email
	if p.Login != nil {
		login = *p.Login
	}
	if p.Email != nil {
		email = *p.Email
	}

	loginExists, emailExists := r.conflicts(id, login, email)
	if loginExists {
		return user.User{}, user.ErrLoginTaken
	}
	if emailExists {
		return user.User{}, user.ErrEmailTaken
	}

	u.Login, u.Email = login, email
	if p.Name != nil {
		u.Name = copyStr(p.Name)
	}
	if p.Phone != nil {
		u.Phone = copyStr(p.Phone)
	}
	if p.Address != nil {
		u.Address = copyStr(p.Address)
	}
	r.items[id] = u

	return u, nil
}

// conflicts reports clashes with users other than skipID. Callers hold the lock.
func (r *UsersRepo) conflicts(skipID int64, login, email string) (loginExists, emailExists bool) {
	for id, u := range r.items {
		if id == skipID {
			continue
		}
		if u.Login == login {
			loginExists = true
		}
		if u.Email == email {
			emailExists = true
		}
	}
	return
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
