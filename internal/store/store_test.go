package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timada-org/todo/internal/store"
	"github.com/timada-org/todo/internal/todo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

const itemsNS = "todo-api.todo-items"

func counterResponse(value int64) bson.D {
	return mtest.CreateSuccessResponse(bson.E{
		Key:   "value",
		Value: bson.D{{Key: "name", Value: store.ItemSequence}, {Key: "value", Value: value}},
	})
}

func newDatabase(mt *mtest.T) *store.Database {
	return store.New(mt.DB, store.DefaultCollections(), zap.NewNop())
}

func TestSequenceNext(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns the incremented value", func(mt *mtest.T) {
		seq := store.NewSequence(mt.Coll, store.ItemSequence, zap.NewNop())
		mt.AddMockResponses(counterResponse(2))

		id, err := seq.Next(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), id)
	})

	mt.Run("missing counter", func(mt *mtest.T) {
		seq := store.NewSequence(mt.Coll, store.ItemSequence, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := seq.Next(context.Background())
		require.ErrorIs(mt, err, store.ErrSequenceMissing)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		seq := store.NewSequence(mt.Coll, store.ItemSequence, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}))

		_, err := seq.Next(context.Background())
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, store.ErrSequenceMissing)
	})
}

func TestItemDAOInsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assigns the sequence value", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(counterResponse(5), mtest.CreateSuccessResponse())

		item := todo.New("A")
		id, err := items.Insert(context.Background(), item)
		require.NoError(mt, err)

		assert.Equal(mt, int64(5), id)
		assert.Equal(mt, int64(5), item.ID)
	})

	mt.Run("sequence missing", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := items.Insert(context.Background(), todo.New("A"))
		require.ErrorIs(mt, err, store.ErrSequenceMissing)
	})

	mt.Run("duplicate id", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(counterResponse(5), mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := items.Insert(context.Background(), todo.New("A"))
		require.Error(mt, err)
	})
}

func TestItemDAOList(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("all items", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch,
			bson.D{{Key: "id", Value: 1}, {Key: "description", Value: "a"}, {Key: "tags", Value: bson.A{"x"}}},
			bson.D{{Key: "id", Value: 2}, {Key: "description", Value: "b"}, {Key: "student", Value: "123"}},
		))

		list, err := items.ListAll(context.Background())
		require.NoError(mt, err)
		require.Len(mt, list, 2)

		assert.Equal(mt, []string{"x"}, list[0].Tags)
		assert.Equal(mt, []string{}, list[1].Tags)
		assert.Equal(mt, int64(2), list[1].ID)
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch))

		list, err := items.ListAll(context.Background())
		require.NoError(mt, err)

		assert.NotNil(mt, list)
		assert.Len(mt, list, 0)
	})

	mt.Run("by student", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch,
			bson.D{{Key: "id", Value: 3}, {Key: "description", Value: "c"}},
		))

		list, err := items.ListByStudent(context.Background(), "123")
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		assert.Empty(mt, list[0].Student)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}))

		_, err := items.ListAll(context.Background())
		require.Error(mt, err)
	})
}

func TestItemDAOFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch,
			bson.D{
				{Key: "id", Value: 4},
				{Key: "description", Value: "d"},
				{Key: "deadline", Value: "Fri, 01 Jan 2021 00:00:00 GMT"},
				{Key: "student", Value: "123"},
			},
		))

		item, err := items.FindByID(context.Background(), 4)
		require.NoError(mt, err)

		assert.Equal(mt, "d", item.Description)
		assert.Equal(mt, "123", item.Student)
		assert.Equal(mt, []string{}, item.Tags)
	})

	mt.Run("not found", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch))

		_, err := items.FindByID(context.Background(), 1000)
		require.ErrorIs(mt, err, todo.ErrNotFound)
	})
}

func TestItemDAOUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("one document modified", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := items.Update(context.Background(), todo.Item{ID: 2, Description: "changed"})
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("identical content", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		ok, err := items.Update(context.Background(), todo.Item{ID: 2, Description: "same"})
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("unknown id", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		ok, err := items.Update(context.Background(), todo.Item{ID: 2000, Description: "x"})
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

func TestItemDAORemoveByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("removed", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		ok, err := items.RemoveByID(context.Background(), 3)
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("nonexistent id is a failure, not an error", func(mt *mtest.T) {
		items := newDatabase(mt).Items()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		ok, err := items.RemoveByID(context.Background(), 2000)
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

func TestStudentDAOExists(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("known", func(mt *mtest.T) {
		students := newDatabase(mt).Students()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "todo-api.students", mtest.FirstBatch,
			bson.D{{Key: "id", Value: "2123689"}},
		))

		ok, err := students.Exists(context.Background(), "2123689")
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("unknown", func(mt *mtest.T) {
		students := newDatabase(mt).Students()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "todo-api.students", mtest.FirstBatch))

		ok, err := students.Exists(context.Background(), "nobody")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

func TestDatabaseMigrate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("indexes and counter", func(mt *mtest.T) {
		db := newDatabase(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, db.Migrate(context.Background()))
	})

	mt.Run("index failure", func(mt *mtest.T) {
		db := newDatabase(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}))

		require.Error(mt, db.Migrate(context.Background()))
	})

	mt.Run("disconnect without a client", func(mt *mtest.T) {
		require.NoError(mt, newDatabase(mt).Disconnect(context.Background()))
	})
}
