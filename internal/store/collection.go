package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-service/internal/apperror"
	models "social-service/model"
)

// Join describes a single-document lookup attached to each fetched record.
// Exclude lists fields of the joined document that are never returned.
type Join struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Exclude      []string
}

// Collection is a typed adapter over a mongo collection.
type Collection[T any] struct {
	coll *mongo.Collection
}

func NewCollection[T any](coll *mongo.Collection) *Collection[T] {
	return &Collection[T]{coll: coll}
}

func (c *Collection[T]) Raw() *mongo.Collection {
	return c.coll
}

// Create inserts doc and returns the generated id.
func (c *Collection[T]) Create(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, apperror.Conflict("record already exists")
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert into %s: %w", c.coll.Name(), err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// FindByID fails with NotFound carrying notFoundMsg when no record matches.
func (c *Collection[T]) FindByID(ctx context.Context, id primitive.ObjectID, notFoundMsg string) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id}, notFoundMsg)
}

func (c *Collection[T]) FindOne(ctx context.Context, filter interface{}, notFoundMsg string) (*T, error) {
	var out T
	err := c.coll.FindOne(ctx, filter).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(notFoundMsg)
		}
		return nil, fmt.Errorf("failed to find in %s: %w", c.coll.Name(), err)
	}
	return &out, nil
}

// Update applies update to the record with id and returns the new version.
func (c *Collection[T]) Update(ctx context.Context, id primitive.ObjectID, update interface{}, notFoundMsg string) (*T, error) {
	return c.UpdateWhere(ctx, bson.M{"_id": id}, update, notFoundMsg)
}

func (c *Collection[T]) UpdateWhere(ctx context.Context, filter, update interface{}, notFoundMsg string) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out T
	err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(notFoundMsg)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("record already exists")
		}
		return nil, fmt.Errorf("failed to update %s: %w", c.coll.Name(), err)
	}
	return &out, nil
}

// UpdateOne reports whether a document matched filter.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter, update interface{}) (bool, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", c.coll.Name(), err)
	}
	return res.MatchedCount > 0, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter interface{}) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.coll.Name(), err)
	}
	return n, nil
}

// FetchPage returns one page of records matching filter in sort order,
// optionally joined with one document of another collection.
func (c *Collection[T]) FetchPage(ctx context.Context, filter interface{}, sort bson.D, page models.Page, join *Join) ([]T, error) {
	if join != nil {
		return c.fetchJoined(ctx, filter, sort, page, join)
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(page.Skip()).
		SetLimit(page.Size)

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0, page.Size)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

func (c *Collection[T]) fetchJoined(ctx context.Context, filter interface{}, sort bson.D, page models.Page, join *Join) ([]T, error) {
	cursor, err := c.coll.Aggregate(ctx, JoinPipeline(filter, sort, page, join))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0, page.Size)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

// JoinPipeline pages before joining so the lookup runs once per returned
// record.
func JoinPipeline(filter interface{}, sort bson.D, page models.Page, join *Join) mongo.Pipeline {
	if filter == nil {
		filter = bson.M{}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: sort}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: page.Size}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: join.From},
			{Key: "localField", Value: join.LocalField},
			{Key: "foreignField", Value: join.ForeignField},
			{Key: "as", Value: join.As},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + join.As},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	if len(join.Exclude) > 0 {
		projection := bson.D{}
		for _, field := range join.Exclude {
			projection = append(projection, bson.E{Key: join.As + "." + field, Value: 0})
		}
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	return pipeline
}
