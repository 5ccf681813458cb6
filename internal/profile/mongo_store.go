// File: internal/profile/mongo_store.go
package profile

import (
	"context"
	"errors"

	"account_agent/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps profile documents in a MongoDB collection with _id set to the UID.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewMongoStore(ctx context.Context, mongoURI, dbName, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client: client,
		col:    client.Database(dbName).Collection(collection),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translateMongo(err)
	}
	return &doc, nil
}

func (s *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, translateMongo(err)
	}
	return n > 0, nil
}

func (s *MongoStore) SetMerge(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": withoutID(data)},
		options.Update().SetUpsert(true),
	)
	return translateMongo(err)
}

func (s *MongoStore) Update(ctx context.Context, id string, data map[string]interface{}) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": withoutID(data)})
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return common.NewNotFoundError(mongo.ErrNoDocuments)
	}
	return nil
}

// withoutID drops the id field; in Mongo the UID lives in _id.
func withoutID(data map[string]interface{}) bson.M {
	set := bson.M{}
	for k, v := range data {
		if k == FieldID {
			continue
		}
		set[k] = v
	}
	return set
}

func translateMongo(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return common.NewTransientError(common.CodeUnavailable, err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorLabel("RetryableWriteError") {
		return common.NewTransientError(common.CodeUnavailable, err)
	}
	return common.NewPermanentError(common.CodeInternal, err)
}
