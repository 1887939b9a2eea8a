package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// KeyActivity counts sessions holding a given key, e.g. how many live carts exist.
type KeyActivity struct {
	Key         string    `json:"key" bson:"_id"`
	Sessions    int       `json:"sessions" bson:"sessions"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

type SessionActivity struct {
	Since          time.Time     `json:"since"`
	Keys           []KeyActivity `json:"keys"`
	ActiveSessions int           `json:"active_sessions"`
}

// Activity summarizes session state written since the given time.
func (s *Storage) Activity(ctx context.Context, since time.Time) (*SessionActivity, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "updated_at", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$key"},
			{Key: "sessions", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "last_updated", Value: bson.D{{Key: "$max", Value: "$updated_at"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "sessions", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []KeyActivity
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, err
	}

	var scopes []string
	err = s.coll.Distinct(ctx, "scope", bson.D{
		{Key: "updated_at", Value: bson.D{{Key: "$gte", Value: since}}},
	}).Decode(&scopes)
	if err != nil {
		return nil, err
	}

	return &SessionActivity{
		Since:          since,
		Keys:           keys,
		ActiveSessions: len(scopes),
	}, nil
}
