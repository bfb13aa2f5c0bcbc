package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "ticket_counters"

type mongoCounterRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type counterDocument struct {
	ID           string `bson:"_id"`
	CurrentValue int64  `bson:"currentValue"`
	StartValue   int64  `bson:"startValue"`
}

// NewMongoCounterRepository increments counters inside a session transaction.
func NewMongoCounterRepository(db *mongo.Database) CounterRepository {
	return &mongoCounterRepository{client: db.Client(), collection: db.Collection(countersCollection)}
}

func (r *mongoCounterRepository) Increment(ctx context.Context, counterID string, startValue int64) (int64, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return 0, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var doc counterDocument
		err := r.collection.FindOne(sessCtx, bson.M{"_id": counterID}).Decode(&doc)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			doc = counterDocument{ID: counterID, CurrentValue: startValue - 1, StartValue: startValue}
		case err != nil:
			return nil, err
		}

		next := doc.CurrentValue + 1
		_, err = r.collection.UpdateOne(sessCtx,
			bson.M{"_id": counterID},
			bson.M{
				"$set":         bson.M{"currentValue": next},
				"$setOnInsert": bson.M{"startValue": doc.StartValue},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		if isMongoConflict(err) {
			return 0, fmt.Errorf("%w: %v", ErrCounterConflict, err)
		}
		return 0, err
	}
	return result.(int64), nil
}

func isMongoConflict(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
