package target

import (
	"errors"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	a := s.Create(UserRequest{Name: "a", Email: "a@example.com"})
	b := s.Create(UserRequest{Name: "b", Email: "b@example.com"})
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if _, err := s.Update(3, UserRequest{Name: "x", Email: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(3) error = %v", err)
	}
	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete(1): %v", err)
	}
	if err := s.Delete(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete(1) error = %v", err)
	}

	c := s.Create(UserRequest{Name: "c", Email: "c@example.com"})
	if c.ID != 3 {
		t.Errorf("ids must not be reused, got %d", c.ID)
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != 2 || list[1].ID != 3 {
		t.Errorf("List() = %+v", list)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Create(UserRequest{Name: "n", Email: "e"})
				_ = s.List()
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 1000 {
		t.Errorf("Len() = %d, want 1000", got)
	}
	seen := make(map[uint64]bool)
	for _, u := range s.List() {
		if seen[u.ID] {
			t.Fatalf("duplicate id %d", u.ID)
		}
		seen[u.ID] = true
	}
}
