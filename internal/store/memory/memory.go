// Package memory is an in-process stand-in for the mongo backed DAOs. It
// keeps the same contracts (sequence ids, insertion order, false on a
// no-op update or remove) and is what the service and HTTP tests run on.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/timada-org/todo/internal/todo"
)

type Items struct {
	mu    sync.RWMutex
	next  int64
	order []int64
	items map[int64]todo.Item

	// Err, when set, is returned by every call.
	Err error
}

func NewItems() *Items {
	return &Items{next: 1, items: map[int64]todo.Item{}}
}

func (s *Items) Insert(_ context.Context, item *todo.Item) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}

	s.next++
	item.ID = s.next

	s.items[item.ID] = clone(*item)
	s.order = append(s.order, item.ID)

	return item.ID, nil
}

func (s *Items) ListAll(_ context.Context) ([]todo.Item, error) {
	return s.list(func(todo.Item) bool { return true }, false)
}

func (s *Items) ListByStudent(_ context.Context, student string) ([]todo.Item, error) {
	return s.list(func(item todo.Item) bool { return item.Student == student }, true)
}

func (s *Items) FindByID(_ context.Context, id int64) (todo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		return todo.Item{}, s.Err
	}

	item, ok := s.items[id]
	if !ok {
		return todo.Item{}, fmt.Errorf("find item %d: %w", id, todo.ErrNotFound)
	}

	return clone(item), nil
}

func (s *Items) Update(_ context.Context, item todo.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return false, s.Err
	}

	current, ok := s.items[item.ID]
	if !ok || (current.IsEqual(&item) && current.Student == item.Student && current.Deadline == item.Deadline) {
		return false, nil
	}

	s.items[item.ID] = clone(item)

	return true, nil
}

func (s *Items) RemoveByID(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return false, s.Err
	}

	if _, ok := s.items[id]; !ok {
		return false, nil
	}

	delete(s.items, id)

	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return true, nil
}

func (s *Items) list(keep func(todo.Item) bool, hideStudent bool) ([]todo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		return nil, s.Err
	}

	items := []todo.Item{}
	for _, id := range s.order {
		item := s.items[id]
		if !keep(item) {
			continue
		}

		item = clone(item)
		if hideStudent {
			item.Student = ""
		}

		items = append(items, item)
	}

	return items, nil
}

func clone(item todo.Item) todo.Item {
	tags := make([]string, len(item.Tags))
	copy(tags, item.Tags)
	item.Tags = tags

	return item
}

type Students struct {
	mu  sync.RWMutex
	ids map[string]struct{}

	Err error
}

func NewStudents(ids ...string) *Students {
	s := &Students{ids: map[string]struct{}{}}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}

	return s
}

func (s *Students) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		return false, s.Err
	}

	_, ok := s.ids[id]

	return ok, nil
}
