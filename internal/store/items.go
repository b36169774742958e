package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/timada-org/todo/internal/todo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ItemDAO is the only code touching the item collection. Results come back
// in store order, without the internal _id field.
type ItemDAO struct {
	coll *mongo.Collection
	seq  *Sequence
	log  *zap.Logger
}

func NewItemDAO(coll *mongo.Collection, seq *Sequence, log *zap.Logger) *ItemDAO {
	return &ItemDAO{coll: coll, seq: seq, log: log}
}

// Insert assigns a fresh id to item, stores it and returns the id.
func (d *ItemDAO) Insert(ctx context.Context, item *todo.Item) (int64, error) {
	id, err := d.seq.Next(ctx)
	if err != nil {
		d.log.Error("failed to insert item", zap.Error(err))
		return 0, fmt.Errorf("insert item: %w", err)
	}

	item.ID = id
	if item.Tags == nil {
		item.Tags = []string{}
	}

	res, err := d.coll.InsertOne(ctx, item)
	if err != nil {
		d.log.Error("failed to insert item", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("insert item %d: %w", id, err)
	}

	if res == nil || res.InsertedID == nil {
		d.log.Error("invalid result while inserting item", zap.Int64("id", id))
		return 0, fmt.Errorf("insert item %d: %w", id, todo.ErrNotPersisted)
	}

	return id, nil
}

func (d *ItemDAO) ListAll(ctx context.Context) ([]todo.Item, error) {
	return d.list(ctx, bson.M{}, bson.M{"_id": 0})
}

// ListByStudent is ListAll restricted to one owner, with the owner field
// left out of the documents.
func (d *ItemDAO) ListByStudent(ctx context.Context, student string) ([]todo.Item, error) {
	return d.list(ctx, bson.M{"student": student}, bson.M{"_id": 0, "student": 0})
}

func (d *ItemDAO) list(ctx context.Context, filter, projection bson.M) ([]todo.Item, error) {
	cursor, err := d.coll.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		d.log.Error("failed to list items", zap.Error(err))
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := []todo.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		d.log.Error("failed to list items", zap.Error(err))
		return nil, fmt.Errorf("list items: %w", err)
	}

	for i := range items {
		if items[i].Tags == nil {
			items[i].Tags = []string{}
		}
	}

	return items, nil
}

// FindByID returns todo.ErrNotFound when no item carries id.
func (d *ItemDAO) FindByID(ctx context.Context, id int64) (todo.Item, error) {
	var item todo.Item

	err := d.coll.FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		d.log.Debug("item not found", zap.Int64("id", id))
		return todo.Item{}, fmt.Errorf("find item %d: %w", id, todo.ErrNotFound)
	}

	if err != nil {
		d.log.Error("failed to find item by id", zap.Int64("id", id), zap.Error(err))
		return todo.Item{}, fmt.Errorf("find item %d: %w", id, err)
	}

	if item.Tags == nil {
		item.Tags = []string{}
	}

	return item, nil
}

// Update replaces the whole document holding item.ID. It reports true only
// when the store modified exactly one document, so replacing a document
// with identical content reports false.
func (d *ItemDAO) Update(ctx context.Context, item todo.Item) (bool, error) {
	if item.Tags == nil {
		item.Tags = []string{}
	}

	res, err := d.coll.ReplaceOne(ctx, bson.M{"id": item.ID}, item)
	if err != nil {
		d.log.Error("failed to update item", zap.Int64("id", item.ID), zap.Error(err))
		return false, fmt.Errorf("update item %d: %w", item.ID, err)
	}

	return res != nil && res.ModifiedCount == 1, nil
}

func (d *ItemDAO) RemoveByID(ctx context.Context, id int64) (bool, error) {
	res, err := d.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		d.log.Error("failed to remove item", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("remove item %d: %w", id, err)
	}

	return res != nil && res.DeletedCount > 0, nil
}
