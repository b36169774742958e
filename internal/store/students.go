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

// StudentDAO reads the student reference collection. Students are managed
// outside this service.
type StudentDAO struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewStudentDAO(coll *mongo.Collection, log *zap.Logger) *StudentDAO {
	return &StudentDAO{coll: coll, log: log}
}

func (d *StudentDAO) Exists(ctx context.Context, id string) (bool, error) {
	err := d.coll.FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}

	if err != nil {
		d.log.Error("failed to check student", zap.String("student", id), zap.Error(err))
		return false, fmt.Errorf("check student %s: %w", id, err)
	}

	return true, nil
}
