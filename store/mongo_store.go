package store

import (
	"context"
	"encoding/json"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DATABASE   = "mtaa_space"
	COLLECTION = "records"
)

// MongoStore keeps one document per key: {_id: <key>, value: <raw JSON>}.
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
}

type record struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

func NewMongoStore(client *mongo.Client) *MongoStore {
	records := client.Database(DATABASE).Collection(COLLECTION)
	return &MongoStore{
		client:  client,
		records: records,
	}
}

func (m *MongoStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	result := m.records.FindOne(ctx, bson.M{"_id": key})

	var rec record
	if err := result.Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		log.Println("Error decoding record:", err)
		return nil, err
	}

	if !json.Valid([]byte(rec.Value)) {
		log.Printf("corrupt value under %q, treating as absent", key)
		return nil, nil
	}
	return json.RawMessage(rec.Value), nil
}

func (m *MongoStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.records.ReplaceOne(ctx, bson.M{"_id": key}, record{Key: key, Value: string(value)}, opts)
	return err
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := m.records.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.TODO())
}
