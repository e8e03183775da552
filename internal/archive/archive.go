// Package archive keeps a time-boxed record of settled rooms in Mongo.
// Postgres stays the source of truth for balances; the archive exists
// so disputes can be reviewed for a while after payout without the
// ledger growing read paths it does not need.
package archive

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "settlements"

// window disputes stay reviewable, enforced by the TTL index
const retention = 30 * 24 * time.Hour

type Settlement struct {
	RoomID    int64     `bson:"room_id" json:"room_id"`
	Winner    int64     `bson:"winner" json:"winner"`
	Payout    string    `bson:"payout" json:"payout"`
	Players   []int64   `bson:"players" json:"players"`
	SettledAt time.Time `bson:"settled_at" json:"settled_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
}

type Store struct {
	col *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{col: db.Collection(Collection)}
}

func (s *Store) Insert(ctx context.Context, rec Settlement) error {
	rec.ExpiresAt = rec.SettledAt.Add(retention)
	_, err := s.col.InsertOne(ctx, rec)
	return err
}

// Recent returns the latest settlements, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Settlement, error) {
	opts := options.Find().
		SetSort(bson.M{"settled_at": -1}).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []Settlement
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
