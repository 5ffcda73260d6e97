package directory

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// InMemory is a Directory backed by a map, seeded at startup or by tests.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemory(users ...User) *InMemory {
	d := &InMemory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put inserts or replaces an account.
func (d *InMemory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *InMemory) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *InMemory) ActiveFacultyByDepartments(ctx context.Context, departments []string) ([]User, error) {
	return d.filter(ctx, func(u User) bool {
		return u.IsDeliverable() && slices.Contains(departments, u.Department)
	})
}

func (d *InMemory) ActiveAdmins(ctx context.Context) ([]User, error) {
	return d.filter(ctx, func(u User) bool {
		return u.Active && u.Role == RoleAdmin
	})
}

// filter returns matches ordered by name then id, matching the Postgres ordering.
func (d *InMemory) filter(ctx context.Context, keep func(User) bool) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []User
	for _, u := range d.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
