// Package mongostore keeps user records as documents in MongoDB: one document
// per user with a selectedPlan field and an embedded limits object.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"gateway/internal/domain"
	"gateway/internal/quota"
)

// DefaultCollection is the collection user documents live in.
const DefaultCollection = "users"

type userDoc struct {
	ID           string        `bson:"_id"`
	Email        string        `bson:"email,omitempty"`
	DisplayName  string        `bson:"displayName,omitempty"`
	SelectedPlan string        `bson:"selectedPlan,omitempty"`
	Limits       *quota.Limits `bson:"limits,omitempty"`
}

// Store implements quota.Store and domain.ProfileRepository on a collection.
type Store struct {
	coll *mongo.Collection
}

// New wraps the users collection of db.
func New(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(DefaultCollection)}
}

// Get implements quota.Store.
func (s *Store) Get(ctx context.Context, userID string) (quota.Record, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		return quota.Record{}, mapErr(err)
	}
	rec := quota.Record{UserID: doc.ID, Plan: doc.SelectedPlan}
	if doc.Limits != nil {
		rec.Limits = *doc.Limits
	}
	return rec, nil
}

// Consume implements quota.Store with a single FindOneAndUpdate whose
// pipeline does the rollover and the conditional increment server-side.
// The document is returned as it was before the update so the decision can
// be derived from the same snapshot the server evaluated.
func (s *Store) Consume(ctx context.Context, userID string, action quota.Action, day string, limit int) (quota.Outcome, error) {
	field := action.Field()
	if field == "" {
		return quota.Outcome{}, quota.ErrUnknownAction
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before userDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, consumePipeline(field, day, limit), opts).Decode(&before)
	if err != nil {
		return quota.Outcome{}, mapErr(err)
	}
	var prev quota.Limits
	if before.Limits != nil {
		prev = *before.Limits
	}
	return decide(prev, action, day, limit), nil
}

// decide replays the pipeline on the pre-image.
func decide(prev quota.Limits, action quota.Action, day string, limit int) quota.Outcome {
	window := prev.Rollover(day)
	if window.Count(action) >= limit {
		return quota.Outcome{Allowed: false, Limits: window}
	}
	return quota.Outcome{Allowed: true, Limits: window.Increment(action)}
}

func consumePipeline(field, day string, limit int) mongo.Pipeline {
	counter := "$limits." + field
	current := bson.D{{Key: "$ifNull", Value: bson.A{counter, 0}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "limits", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$limits.date", day}}},
			"$limits",
			bson.D{
				{Key: "date", Value: bson.D{{Key: "$literal", Value: day}}},
				{Key: "mailsToday", Value: 0},
				{Key: "profileChangesToday", Value: 0},
			},
		}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: "limits." + field, Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$lt", Value: bson.A{current, limit}}},
			bson.D{{Key: "$add", Value: bson.A{current, 1}}},
			current,
		}}}}}}},
	}
}

// UpdateDisplayName implements domain.ProfileRepository.
func (s *Store) UpdateDisplayName(ctx context.Context, userID, name string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"displayName":               name,
		"profile.name":              name,
		"api.lastProfileNameUpdate": at.UTC().Format(time.RFC3339Nano),
	}})
	if err != nil {
		return fmt.Errorf("mongostore: update display name: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPlan implements domain.PlanRepository.
func (s *Store) SetPlan(ctx context.Context, userID, plan string, resetUsage bool) error {
	update := bson.M{"$set": bson.M{"selectedPlan": plan}}
	if resetUsage {
		update["$unset"] = bson.M{"limits": ""}
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("mongostore: set plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("mongostore: %w", err)
}

var (
	_ quota.Store              = (*Store)(nil)
	_ domain.ProfileRepository = (*Store)(nil)
	_ domain.PlanRepository    = (*Store)(nil)
)
