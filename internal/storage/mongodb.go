// internal/storage/mongodb.go
package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/utils"
	"github.com/valpere/recipevault/pkg/types"
)

// MongoStore keeps recipes in a MongoDB collection with a unique index on url.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
	logger     zerolog.Logger
}

// recipeDocument is the stored form of a recipe.
type recipeDocument struct {
	Title        string    `bson:"title"`
	Ingredients  []string  `bson:"ingredients"`
	Instructions []string  `bson:"instructions"`
	Image        *string   `bson:"image,omitempty"`
	URL          string    `bson:"url"`
	ScrapedAt    time.Time `bson:"scrapedAt"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (d recipeDocument) recipe() *types.Recipe {
	r := &types.Recipe{
		Title:        d.Title,
		Ingredients:  d.Ingredients,
		Instructions: d.Instructions,
		Image:        d.Image,
		URL:          d.URL,
		ScrapedAt:    d.ScrapedAt.UTC(),
		CreatedAt:    d.CreatedAt.UTC(),
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return r
}

// NewMongoStore connects to MongoDB and ensures the collection indexes.
func NewMongoStore(ctx context.Context, cfg Config) (*MongoStore, error) {
	cfg = cfg.withDefaults()
	logger := utils.NewComponentLogger("mongodb-store")

	clientOptions := options.Client().
		ApplyURI(cfg.DSN).
		SetMaxPoolSize(uint64(cfg.MaxOpenConns)).
		SetConnectTimeout(cfg.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Table),
		now:        time.Now,
		logger:     logger,
	}
	if err := store.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info().Str("database", cfg.Database).Str("collection", cfg.Table).Msg("store ready")
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("url_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Upsert implements Store.
func (s *MongoStore) Upsert(ctx context.Context, r types.Recipe) (*types.Recipe, error) {
	rec := prepare(r, s.now())

	onInsert := bson.M{
		"title":        rec.Title,
		"ingredients":  rec.Ingredients,
		"instructions": rec.Instructions,
		"createdAt":    rec.CreatedAt,
	}
	if rec.Image != nil {
		onInsert["image"] = *rec.Image
	}
	update := bson.M{
		"$set":         bson.M{"scrapedAt": rec.ScrapedAt},
		"$setOnInsert": onInsert,
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc recipeDocument
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"url": rec.URL}, update, opts).Decode(&doc)
	if err != nil {
		return nil, apperrors.Persistence(err, "upsert %s", rec.URL)
	}

	s.logger.Debug().Str("url", rec.URL).Msg("recipe saved")
	return doc.recipe(), nil
}

// ListAll implements Store.
func (s *MongoStore) ListAll(ctx context.Context) ([]types.Recipe, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, listError(err)
	}
	defer cursor.Close(ctx)

	recipes := []types.Recipe{}
	for cursor.Next(ctx) {
		var doc recipeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, listError(err)
		}
		recipes = append(recipes, *doc.recipe())
	}
	if err := cursor.Err(); err != nil {
		return nil, listError(err)
	}
	return recipes, nil
}

// DeleteByURL implements Store.
func (s *MongoStore) DeleteByURL(ctx context.Context, url string) (*types.Recipe, error) {
	var doc recipeDocument
	err := s.collection.FindOneAndDelete(ctx, bson.M{"url": url}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, deleteError(err, url)
	}

	s.logger.Debug().Str("url", url).Msg("recipe deleted")
	return doc.recipe(), nil
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close implements Store.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
