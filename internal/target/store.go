package target

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotFound is returned for an unknown user ID.
var ErrNotFound = errors.New("user not found")

// User is a stored user.
type User struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRequest is the body of create and update requests.
type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MemoryStore keeps users in memory. IDs start at 1 and are never reused.
type MemoryStore struct {
	data   sync.Map
	nextID atomic.Uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(req UserRequest) User {
	id := s.nextID.Add(1)
	user := User{
		ID:        id,
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}
	s.data.Store(id, user)
	return user
}

func (s *MemoryStore) Get(id uint64) (User, error) {
	val, ok := s.data.Load(id)
	if !ok {
		return User{}, ErrNotFound
	}
	return val.(User), nil
}

// List returns all users ordered by ID.
func (s *MemoryStore) List() []User {
	users := make([]User, 0)
	s.data.Range(func(_, value any) bool {
		users = append(users, value.(User))
		return true
	})
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *MemoryStore) Update(id uint64, req UserRequest) (User, error) {
	val, ok := s.data.Load(id)
	if !ok {
		return User{}, ErrNotFound
	}
	user := val.(User)
	user.Name = req.Name
	user.Email = req.Email
	s.data.Store(id, user)
	return user, nil
}

func (s *MemoryStore) Delete(id uint64) error {
	if _, ok := s.data.LoadAndDelete(id); !ok {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	n := 0
	s.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
