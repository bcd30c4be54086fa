package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection     = "users"
	DocumentsCollection = "documents"
	SessionsCollection  = "sessions"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	clientOpts := options.Client().ApplyURI(uri).SetTimeout(timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectWithRetry calls ConnectMongo up to attempts times, doubling the
// pause between attempts.
func ConnectWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, onRetry func(attempt int, err error)) (*mongo.Client, error) {
	backoff := time.Second
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var client *mongo.Client
		if client, err = ConnectMongo(ctx, uri, timeout); err == nil {
			return client, nil
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, err
}

// IndexModels lists the indexes each collection needs: unique usernames,
// newest-first listings, author listings and favorites cleanup.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "favorites", Value: 1}}, Options: options.Index().SetName("favorites")},
		},
		DocumentsCollection: {
			{Keys: bson.D{{Key: "creationDate", Value: -1}, {Key: "_id", Value: -1}}, Options: options.Index().SetName("creation_date_desc")},
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "creationDate", Value: -1}}, Options: options.Index().SetName("author_creation_date")},
			{Keys: bson.D{{Key: "public", Value: 1}, {Key: "creationDate", Value: -1}}, Options: options.Index().SetName("public_creation_date")},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: options.Index().SetUnique(true).SetName("refresh_token_unique")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("username")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl")},
		},
	}
}

// EnsureIndexes creates the indexes from IndexModels. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for col, models := range IndexModels() {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}
