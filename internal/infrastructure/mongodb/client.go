package mongodb

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const UsersCollection = "users"

// Connect opens a client, pings the primary and logs the server version.
func Connect(ctx context.Context, uri string, log *logrus.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, oops.Code("MONGO_CONNECT").With("uri_set", uri != "").Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, oops.Code("MONGO_PING").Wrap(err)
	}

	var info struct {
		Version string `bson:"version"`
	}
	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info); err == nil && log != nil {
		log.WithField("version", info.Version).Info("connected to MongoDB")
	}
	return client, nil
}

// EnsureIndexes creates the unique email index the repository relies on for
// duplicate detection, plus a lookup index on the reset token digest.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_reset_token"),
		},
	})
	if err != nil {
		return oops.Code("MONGO_INDEXES").With("collection", UsersCollection).Wrap(err)
	}
	return nil
}
