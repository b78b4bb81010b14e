package dbhelper

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/speakcheck/apiv1/models"
)

// Every store call gets a short deadline so a database outage degrades the
// API to fast failures instead of hangs.
const opTimeout = time.Second

// Store is the MongoDB-backed document store for users, sessions, and
// password reset tokens.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenDB(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(opTimeout).
		SetConnectTimeout(opTimeout).
		SetSocketTimeout(opTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// InitDB creates the unique and sweep-supporting indexes. The unique email
// and token indexes are what make concurrent duplicate writes lose cleanly.
func (s *Store) InitDB(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*opTimeout)
	defer cancel()

	_, err := s.db.Collection(models.USER_COLLECTION).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(models.USER_SESSION_COLLECTION).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(models.PASSWORD_RESET_COLLECTION).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}
