package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/datx24/storefront/pkg/storage"
)

const (
	SessionCollection = "session_state"
	maxUpdateAttempts = 10
)

// sessionDoc is one stored value. The _id is "{scope}/{key}" so change events,
// which only carry the document key on delete, can be routed to a scope.
type sessionDoc struct {
	ID        string    `bson:"_id"`
	Scope     string    `bson:"scope"`
	Key       string    `bson:"key"`
	Value     []byte    `bson:"value"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

type Storage struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewStorage(db *mongo.Database) *Storage {
	return &Storage{coll: db.Collection(SessionCollection), now: time.Now}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Storage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	doc, err := s.find(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (s *Storage) Set(ctx context.Context, scope, key string, value []byte) error {
	if value == nil {
		return s.Delete(ctx, scope, key)
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "scope", Value: scope},
			{Key: "key", Value: key},
			{Key: "value", Value: value},
			{Key: "updated_at", Value: s.now()},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: docID(scope, key)}}, update,
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set failed: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: docID(scope, key)}}); err != nil {
		return fmt.Errorf("mongo delete failed: %w", err)
	}
	return nil
}

// Update compares the version it read against the stored one on write and
// retries when another writer got there first.
func (s *Storage) Update(ctx context.Context, scope, key string, fn storage.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var old []byte
		var version int64
		exists := true

		doc, err := s.find(ctx, scope, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			exists = false
		case err != nil:
			return err
		default:
			old, version = doc.Value, doc.Version
		}

		next, err := fn(old)
		if err != nil {
			return err
		}

		done, err := s.write(ctx, scope, key, exists, version, next)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return storage.ErrConflict
}

// write reports false when the document changed since it was read.
func (s *Storage) write(ctx context.Context, scope, key string, exists bool, version int64, next []byte) (bool, error) {
	id := docID(scope, key)

	if next == nil {
		if !exists {
			return true, nil
		}
		res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}})
		if err != nil {
			return false, fmt.Errorf("mongo delete failed: %w", err)
		}
		return res.DeletedCount == 1, nil
	}

	if !exists {
		_, err := s.coll.InsertOne(ctx, sessionDoc{
			ID:        id,
			Scope:     scope,
			Key:       key,
			Value:     next,
			Version:   1,
			UpdatedAt: s.now(),
		})
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("mongo insert failed: %w", err)
		}
		return true, nil
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "value", Value: next},
			{Key: "updated_at", Value: s.now()},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}}, update)
	if err != nil {
		return false, fmt.Errorf("mongo update failed: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// Subscribe opens a change stream filtered to one scope. Change streams need a
// replica set deployment.
func (s *Storage) Subscribe(ctx context.Context, scope string) (<-chan storage.Change, error) {
	prefix := scope + "/"
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
			{Key: "documentKey._id", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(prefix)}}},
		}}},
	}

	stream, err := s.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo watch failed: %w", err)
	}

	out := make(chan storage.Change, 16)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				log.Printf("Warning: ignoring undecodable change event: %v", err)
				continue
			}
			change := storage.Change{
				Scope:   scope,
				Key:     strings.TrimPrefix(event.DocumentKey.ID, prefix),
				Deleted: event.OperationType == "delete",
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("Warning: session change stream for %s ended: %v", scope, err)
		}
	}()

	return out, nil
}

func (s *Storage) find(ctx context.Context, scope, key string) (*sessionDoc, error) {
	var doc sessionDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: docID(scope, key)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get failed: %w", err)
	}
	return &doc, nil
}

func docID(scope, key string) string {
	return scope + "/" + key
}
