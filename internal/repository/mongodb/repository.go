package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

const documentsCollection = "documents"

// storedDocument is the on-disk shape of every user document.
type storedDocument struct {
	UserID     string    `bson:"user_id"`
	Collection string    `bson:"collection"`
	DocID      string    `bson:"doc_id"`
	Data       bson.M    `bson:"data"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// MongoDBRepository implements repository.Store on a single MongoDB collection.
type MongoDBRepository struct {
	client       *mongo.Client
	coll         *mongo.Collection
	transactions bool
	logger       *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB and ensures the document index exists.
// Transactions need a replica set; without them RunInTx applies writes one by one.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, transactions bool, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection(documentsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "collection", Value: 1},
			{Key: "doc_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create documents index: %w", err)
	}

	return &MongoDBRepository{
		client:       client,
		coll:         coll,
		transactions: transactions,
		logger:       logger,
	}, nil
}

func refFilter(ref repository.Ref) bson.D {
	return bson.D{
		{Key: "user_id", Value: ref.UserID},
		{Key: "collection", Value: ref.Collection},
		{Key: "doc_id", Value: ref.ID},
	}
}

// Get returns the fields stored at ref.
func (r *MongoDBRepository) Get(ctx context.Context, ref repository.Ref) (repository.Fields, error) {
	var doc storedDocument
	err := r.coll.FindOne(ctx, refFilter(ref)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %w", models.ErrExternalService, ref, err)
	}
	return toFields(doc.Data), nil
}

// Set replaces the document at ref, or overlays fields onto it when merge is true.
func (r *MongoDBRepository) Set(ctx context.Context, ref repository.Ref, fields repository.Fields, merge bool) error {
	now := time.Now().UTC()

	if merge {
		set := bson.M{"updated_at": now}
		for k, v := range fields {
			set["data."+k] = v
		}
		_, err := r.coll.UpdateOne(ctx, refFilter(ref), bson.M{"$set": set}, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("%w: merge %s: %w", models.ErrExternalService, ref, err)
		}
		return nil
	}

	data := bson.M{}
	for k, v := range fields {
		data[k] = v
	}
	doc := storedDocument{
		UserID:     ref.UserID,
		Collection: ref.Collection,
		DocID:      ref.ID,
		Data:       data,
		UpdatedAt:  now,
	}
	_, err := r.coll.ReplaceOne(ctx, refFilter(ref), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: replace %s: %w", models.ErrExternalService, ref, err)
	}
	return nil
}

// Delete removes the document at ref.
func (r *MongoDBRepository) Delete(ctx context.Context, ref repository.Ref) error {
	if _, err := r.coll.DeleteOne(ctx, refFilter(ref)); err != nil {
		return fmt.Errorf("%w: delete %s: %w", models.ErrExternalService, ref, err)
	}
	return nil
}

// List returns the documents of a user's collection ordered by id.
func (r *MongoDBRepository) List(ctx context.Context, userID, collection string) ([]repository.Document, error) {
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "collection", Value: collection}}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "doc_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list users/%s/%s: %w", models.ErrExternalService, userID, collection, err)
	}

	var stored []storedDocument
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("%w: decode users/%s/%s: %w", models.ErrExternalService, userID, collection, err)
	}

	docs := make([]repository.Document, 0, len(stored))
	for _, doc := range stored {
		docs = append(docs, repository.Document{ID: doc.DocID, Fields: toFields(doc.Data)})
	}
	return docs, nil
}

// UserIDs returns the users owning at least one document in collection.
func (r *MongoDBRepository) UserIDs(ctx context.Context, collection string) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "user_id", bson.D{{Key: "collection", Value: collection}})
	if err != nil {
		return nil, fmt.Errorf("%w: distinct users of %s: %w", models.ErrExternalService, collection, err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// RunInTx runs fn inside a MongoDB transaction when transactions are enabled.
func (r *MongoDBRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if !r.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, r)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %w", models.ErrExternalService, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, r)
	})
	return err
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// toFields converts driver types back into plain Go values.
func toFields(data bson.M) repository.Fields {
	fields := repository.Fields{}
	for k, v := range data {
		fields[k] = normalize(v)
	}
	return fields
}

func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		return map[string]any(toFields(val))
	case bson.D:
		m := map[string]any{}
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return val
	}
}
