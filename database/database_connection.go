package database

import (
	"context"
	"log"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	dbClient *mongo.Client
	connect  sync.Once
)

// Client returns the shared Mongo client, connecting on first use. A single
// client is required so multi-document transactions share one session pool.
func Client() *mongo.Client {
	connect.Do(func() {
		serverAPI := options.ServerAPI(options.ServerAPIVersion1)
		uri := os.Getenv("MONGODB_URI")
		opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
		client, err := mongo.Connect(opts)
		if err != nil {
			panic(err)
		}
		if err := client.Ping(context.TODO(), readpref.Primary()); err != nil {
			panic(err)
		}
		log.Println("Connected to MongoDB")
		dbClient = client
	})
	return dbClient
}

func OpenCollection(collectionName string) *mongo.Collection {
	databaseName := os.Getenv("DATABASE_NAME")
	return Client().Database(databaseName).Collection(collectionName)
}

// EnsureIndexes creates the indexes the application relies on. The unique
// email index is load-bearing: it is what turns two concurrent
// registrations with the same email into exactly one row and one conflict.
func EnsureIndexes(ctx context.Context) error {
	users := OpenCollection("users")
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	refresh := OpenCollection("refresh_tokens")
	if _, err := refresh.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "expiresAt", Value: -1}}},
	}); err != nil {
		return err
	}

	todos := OpenCollection("todos")
	if _, err := todos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}}},
		{Keys: bson.D{{Key: "assigneeId", Value: 1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}, {Key: "reminded", Value: 1}}},
	}); err != nil {
		return err
	}

	logs := OpenCollection("activity_logs")
	_, err := logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}
