// Package service orchestrates the item and student stores: it builds items
// from client JSON, scopes them to their owning student and announces every
// successful write on the event publisher.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timada-org/todo/internal/todo"
	"github.com/timada-org/todo/pkg/client"
	"github.com/timada-org/todo/pkg/topic"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type ItemStore interface {
	Insert(ctx context.Context, item *todo.Item) (int64, error)
	ListAll(ctx context.Context) ([]todo.Item, error)
	ListByStudent(ctx context.Context, student string) ([]todo.Item, error)
	FindByID(ctx context.Context, id int64) (todo.Item, error)
	Update(ctx context.Context, item todo.Item) (bool, error)
	RemoveByID(ctx context.Context, id int64) (bool, error)
}

type StudentStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Publisher interface {
	Send(ctx context.Context, event *client.Event) error
}

type Options struct {
	Items    ItemStore
	Students StudentStore
	Events   Publisher
	Log      *zap.Logger
}

// Service methods take the owning student first. An empty student means
// the call is not scoped and sees every item.
type Service struct {
	items    ItemStore
	students StudentStore
	events   Publisher
	log      *zap.Logger
	pending  sync.WaitGroup
}

func New(options Options) *Service {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		items:    options.Items,
		students: options.Students,
		events:   options.Events,
		log:      log,
	}
}

// Authorize returns todo.ErrUnknownStudent unless the student exists.
func (s *Service) Authorize(ctx context.Context, student string) error {
	ok, err := s.students.Exists(ctx, student)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("authorize %s: %w", student, todo.ErrUnknownStudent)
	}

	return nil
}

func (s *Service) List(ctx context.Context, student string) ([]todo.Item, error) {
	if student == "" {
		return s.items.ListAll(ctx)
	}

	return s.items.ListByStudent(ctx, student)
}

// Add stores a new item built from raw and returns its id. A
// *todo.ValidationError is returned as is.
func (s *Service) Add(ctx context.Context, student string, raw map[string]any) (int64, error) {
	item, err := todo.FromJSON(raw)
	if err != nil {
		return 0, err
	}

	item.ID = 0
	item.Student = student

	id, err := s.items.Insert(ctx, item)
	if err != nil {
		return 0, err
	}

	if id == 0 {
		return 0, fmt.Errorf("add item: %w", todo.ErrNotPersisted)
	}

	s.publish(ctx, client.Created, student, id, item)

	return id, nil
}

func (s *Service) Get(ctx context.Context, student string, id int64) (todo.Item, error) {
	return s.find(ctx, student, id)
}

// Update replaces the stored item whose id raw carries. The owner of the
// stored item is kept whatever raw says.
func (s *Service) Update(ctx context.Context, student string, raw map[string]any) error {
	item, err := todo.FromJSON(raw)
	if err != nil {
		return err
	}

	existing, err := s.find(ctx, student, item.ID)
	if err != nil {
		return err
	}

	item.Student = existing.Student

	ok, err := s.items.Update(ctx, *item)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("update item %d: %w", item.ID, todo.ErrNotPersisted)
	}

	s.publish(ctx, client.Updated, student, item.ID, item)

	return nil
}

func (s *Service) Remove(ctx context.Context, student string, id int64) error {
	if student != "" {
		if _, err := s.find(ctx, student, id); err != nil {
			return err
		}
	}

	ok, err := s.items.RemoveByID(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("remove item %d: %w", id, todo.ErrNotFound)
	}

	s.publish(ctx, client.Deleted, student, id, map[string]any{"id": id})

	return nil
}

// Wait blocks until every event publication started so far has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) find(ctx context.Context, student string, id int64) (todo.Item, error) {
	if id <= 0 {
		return todo.Item{}, fmt.Errorf("find item %d: %w", id, todo.ErrNotFound)
	}

	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return todo.Item{}, err
	}

	if student != "" && item.Student != student {
		return todo.Item{}, fmt.Errorf("find item %d for %s: %w", id, student, todo.ErrNotFound)
	}

	return item, nil
}

func (s *Service) publish(ctx context.Context, name, student string, id int64, data any) {
	if s.events == nil {
		return
	}

	event := &client.Event{
		Student: student,
		Topic:   topic.Item(id),
		Name:    name,
		Data:    data,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		if err := s.events.Send(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("failed to publish item event",
				zap.String("topic", event.Topic.Value),
				zap.String("name", name),
				zap.Error(err),
			)
		}
	}()
}
