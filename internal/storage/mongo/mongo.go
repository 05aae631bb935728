// Package mongo is the document store backend. Records are persisted in
// their wide sparse shape; uniqueness of (external_id, media_type) and
// (user_id, media_id) is carried by unique compound indexes so that
// insert-if-absent is atomic on the server.
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

type Store struct {
	client *mongo.Client
	media  *mongo.Collection
	lists  *mongo.Collection
	prefs  *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client: client,
		media:  db.Collection("media_items"),
		lists:  db.Collection("user_lists"),
		prefs:  db.Collection("user_preferences"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.media.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}, {Key: "media_type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "media_type", Value: 1}, {Key: "title", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("media indexes: %w", err)
	}

	_, err = s.lists.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "media_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	_, err = s.prefs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("prefs indexes: %w", err)
	}
	return nil
}

func (s *Store) Media() storage.MediaStore { return &mediaStore{c: s.media} }
func (s *Store) Lists() storage.ListStore  { return &listStore{c: s.lists} }
func (s *Store) Prefs() storage.PrefsStore { return &prefsStore{c: s.prefs} }

func (s *Store) Ping(ctx context.Context) error  { return s.client.Ping(ctx, nil) }
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

type mediaStore struct {
	c *mongo.Collection
}

func (r *mediaStore) FindByTitle(ctx context.Context, substr string, t models.MediaType, limit int) ([]models.MediaRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	filter := bson.M{
		"media_type": string(t),
		"title":      bson.M{"$regex": regexp.QuoteMeta(substr), "$options": "i"},
	}

	cur, err := r.c.Find(ctx, filter, options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.MediaRecord, 0, limit)
	for cur.Next(ctx) {
		var w models.MediaWire
		if err := cur.Decode(&w); err != nil {
			return nil, fmt.Errorf("decode media doc: %w", err)
		}
		out = append(out, w.Record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor err: %w", err)
	}
	return out, nil
}

func (r *mediaStore) FindByExternalID(ctx context.Context, externalID string, t models.MediaType) (*models.MediaRecord, error) {
	return r.findOne(ctx, bson.M{"external_id": externalID, "media_type": string(t)})
}

func (r *mediaStore) FindByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mediaStore) findOne(ctx context.Context, filter bson.M) (*models.MediaRecord, error) {
	var w models.MediaWire
	err := r.c.FindOne(ctx, filter).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find media: %w", err)
	}
	rec := w.Record()
	return &rec, nil
}

func (r *mediaStore) InsertIfAbsent(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, bool, error) {
	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.c.InsertOne(ctx, rec.Wire())
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, ferr := r.FindByExternalID(ctx, rec.ExternalID, rec.Type)
			if ferr != nil {
				return models.MediaRecord{}, false, ferr
			}
			if existing == nil {
				return models.MediaRecord{}, false, fmt.Errorf("insert media: conflict doc vanished")
			}
			return *existing, false, nil
		}
		return models.MediaRecord{}, false, fmt.Errorf("insert media: %w", err)
	}
	return rec, true, nil
}

type listStore struct {
	c *mongo.Collection
}

func (r *listStore) Insert(ctx context.Context, e models.ListEntry) (models.ListEntry, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.c.InsertOne(ctx, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ListEntry{}, storage.ErrAlreadyExists
		}
		return models.ListEntry{}, fmt.Errorf("insert list entry: %w", err)
	}
	return e, nil
}

func (r *listStore) Get(ctx context.Context, id, userID string) (*models.ListEntry, error) {
	var e models.ListEntry
	err := r.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("get list entry: %w", err)
	}
	return &e, nil
}

func (r *listStore) List(ctx context.Context, userID string, f storage.ListFilter) ([]models.ListEntry, error) {
	filter := bson.M{"user_id": userID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.MediaType != "" {
		filter["media_type"] = string(f.MediaType)
	}

	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.ListEntry
	for cur.Next(ctx) {
		var e models.ListEntry
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode list doc: %w", err)
		}
		out = append(out, e)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor err: %w", err)
	}
	return out, nil
}

func (r *listStore) Update(ctx context.Context, id, userID string, upd models.ListEntryUpdate) (*models.ListEntry, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Progress != nil {
		set["progress"] = upd.Progress
	}
	if upd.Rating != nil {
		set["rating"] = *upd.Rating
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update list entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, storage.ErrNotFound
	}
	return r.Get(ctx, id, userID)
}

func (r *listStore) Delete(ctx context.Context, id, userID string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete list entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type prefsStore struct {
	c *mongo.Collection
}

func (r *prefsStore) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var p models.UserPreferences
	err := r.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

func (r *prefsStore) Upsert(ctx context.Context, p models.UserPreferences) (*models.UserPreferences, error) {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.c.UpdateOne(ctx,
		bson.M{"user_id": p.UserID},
		bson.M{
			"$set": bson.M{
				"theme":                 p.Theme,
				"language":              p.Language,
				"notifications_enabled": p.NotificationsEnabled,
				"updated_at":            p.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":        p.ID,
				"user_id":    p.UserID,
				"created_at": p.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}
	return r.Get(ctx, p.UserID)
}
