package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrSequenceMissing = errors.New("sequence counter missing")

// Sequence mints ids from a named counter document. Uniqueness comes from
// the server side $inc, there is no locking here.
type Sequence struct {
	coll *mongo.Collection
	name string
	log  *zap.Logger
}

type counter struct {
	Name  string `bson:"name"`
	Value int64  `bson:"value"`
}

func NewSequence(coll *mongo.Collection, name string, log *zap.Logger) *Sequence {
	return &Sequence{coll: coll, name: name, log: log}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var c counter

	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"name": s.name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)

	if errors.Is(err, mongo.ErrNoDocuments) {
		s.log.Error("failed to generate id", zap.String("sequence", s.name), zap.Error(ErrSequenceMissing))
		return 0, fmt.Errorf("next %s: %w", s.name, ErrSequenceMissing)
	}

	if err != nil {
		s.log.Error("failed to generate id", zap.String("sequence", s.name), zap.Error(err))
		return 0, fmt.Errorf("next %s: %w", s.name, err)
	}

	return c.Value, nil
}
