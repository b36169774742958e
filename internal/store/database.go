// Package store is the MongoDB side of the service: one Database handle per
// process, the id sequence and the collection scoped DAOs built on it.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const ItemSequence = "todo-item-id"

type Collections struct {
	Items     string
	Sequences string
	Students  string
}

func DefaultCollections() Collections {
	return Collections{
		Items:     "todo-items",
		Sequences: "sequences",
		Students:  "students",
	}
}

type Config struct {
	URI            string
	Database       string
	Collections    Collections
	ConnectTimeout time.Duration
	Log            *zap.Logger
}

// Database owns the driver client. The client pools connections, so a
// process must create exactly one and share it.
type Database struct {
	client      *mongo.Client
	db          *mongo.Database
	collections Collections
	log         *zap.Logger
	items       *ItemDAO
	students    *StudentDAO
}

func Connect(ctx context.Context, config Config) (*Database, error) {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		log.Error("failed to connect to the database", zap.Error(err))
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Error("failed to reach the database", zap.Error(err))
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Info("connected to the database", zap.String("database", config.Database))

	return newDatabase(client, client.Database(config.Database), config.Collections, log), nil
}

// New wraps an already connected database. Disconnect is a no-op for it.
func New(db *mongo.Database, collections Collections, log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}

	return newDatabase(nil, db, collections, log)
}

func newDatabase(client *mongo.Client, db *mongo.Database, collections Collections, log *zap.Logger) *Database {
	sequence := NewSequence(db.Collection(collections.Sequences), ItemSequence, log)

	return &Database{
		client:      client,
		db:          db,
		collections: collections,
		log:         log,
		items:       NewItemDAO(db.Collection(collections.Items), sequence, log),
		students:    NewStudentDAO(db.Collection(collections.Students), log),
	}
}

func (d *Database) Items() *ItemDAO {
	return d.items
}

func (d *Database) Students() *StudentDAO {
	return d.students
}

func (d *Database) Disconnect(ctx context.Context) error {
	if d.client == nil {
		return nil
	}

	if err := d.client.Disconnect(ctx); err != nil {
		d.log.Error("failed to close database connection", zap.Error(err))
		return err
	}

	d.log.Info("closed database connection")

	return nil
}

// Migrate creates the unique indexes and the item sequence counter. It is
// safe to run repeatedly: an existing counter keeps its value.
func (d *Database) Migrate(ctx context.Context) error {
	unique := []struct {
		collection string
		key        string
	}{
		{d.collections.Items, "id"},
		{d.collections.Students, "id"},
		{d.collections.Sequences, "name"},
	}

	for _, u := range unique {
		_, err := d.db.Collection(u.collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: u.key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			d.log.Error("failed to create index", zap.String("collection", u.collection), zap.Error(err))
			return fmt.Errorf("create index on %s.%s: %w", u.collection, u.key, err)
		}
	}

	_, err := d.db.Collection(d.collections.Sequences).UpdateOne(ctx,
		bson.M{"name": ItemSequence},
		bson.M{"$setOnInsert": bson.M{"value": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		d.log.Error("failed to create sequence", zap.String("name", ItemSequence), zap.Error(err))
		return fmt.Errorf("create sequence %s: %w", ItemSequence, err)
	}

	d.log.Debug("database migrations finished")

	return nil
}
