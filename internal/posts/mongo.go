package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrMongoUnavailable is returned when the server cannot be reached.
var ErrMongoUnavailable = errors.New("mongodb unavailable")

// ConnectMongo connects to url and pings the primary within timeout.
func ConnectMongo(ctx context.Context, url string, timeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(url).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMongoUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrMongoUnavailable, err)
	}
	return client, nil
}

// MongoRepository keeps records in a MongoDB collection, one document per
// post keyed by ID.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over coll.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func (r *MongoRepository) Insert(ctx context.Context, rec *Record) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
		return fmt.Errorf("failed to insert post %s: %w", rec.ID, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load post %s: %w", id, err)
	}
	return &rec, nil
}

// List returns records ordered by creation time.
func (r *MongoRepository) List(ctx context.Context) ([]*Record, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var records []*Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return records, nil
}

func (r *MongoRepository) Update(ctx context.Context, rec *Record) error {
	res, err := r.coll.ReplaceOne(ctx, byID(rec.ID), rec)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *MongoRepository) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return int(n), nil
}
