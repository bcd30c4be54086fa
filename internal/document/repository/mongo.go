package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/domperidog/docshare/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// toggleAttempts bounds the pull/add race loop in ToggleEditor.
const toggleAttempts = 3

// MongoRepo implements Repository on a MongoDB collection. Ids are ObjectID
// hex strings stored in _id.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

var newestFirst = bson.D{{Key: "creationDate", Value: -1}, {Key: "_id", Value: -1}}

func (m *MongoRepo) FindByID(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &d, nil
}

func (m *MongoRepo) Find(ctx context.Context, f Filter, skip, limit int64) ([]*document.Document, error) {
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().SetSort(newestFirst).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.col.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := m.col.CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (m *MongoRepo) Insert(ctx context.Context, d *document.Document) (string, error) {
	if d.ID == "" {
		d.ID = primitive.NewObjectID().Hex()
	}
	if d.CreationDate.IsZero() {
		d.CreationDate = time.Now().UTC()
	}
	if d.Editors == nil {
		d.Editors = []string{}
	}
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return d.ID, nil
}

func (m *MongoRepo) UpdateFields(ctx context.Context, id string, fields Fields) (*document.Document, error) {
	set := bson.M{}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.Content != nil {
		set["content"] = *fields.Content
	}
	if fields.Public != nil {
		set["public"] = *fields.Public
	}
	if len(set) == 0 {
		return m.FindByID(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d document.Document
	if err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return &d, nil
}

// ToggleEditor runs two conditional single-document updates: pull when the
// username is present, otherwise add when it is absent. A concurrent flip
// between the two makes both miss, in which case the pair is retried.
func (m *MongoRepo) ToggleEditor(ctx context.Context, id, username string) (*document.Document, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		var d document.Document
		err := m.col.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "editors": username},
			bson.M{"$pull": bson.M{"editors": username}}, opts).Decode(&d)
		if err == nil {
			return &d, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("pull editor: %w", err)
		}

		err = m.col.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "author": bson.M{"$ne": username}, "editors": bson.M{"$ne": username}},
			bson.M{"$addToSet": bson.M{"editors": username}}, opts).Decode(&d)
		if err == nil {
			return &d, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("add editor: %w", err)
		}

		cur, err := m.FindByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if cur == nil {
			return nil, false, ErrNotFound
		}
		if cur.Author == username {
			return nil, false, errAuthorAsEditor
		}
	}
	return nil, false, fmt.Errorf("toggle editor: too many concurrent updates on %s", id)
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// buildFilter translates a Filter into a MongoDB query document.
func buildFilter(f Filter) bson.M {
	and := bson.A{}
	if f.Author != "" {
		and = append(and, bson.M{"author": f.Author})
	}
	if len(f.IDs) > 0 {
		and = append(and, bson.M{"_id": bson.M{"$in": f.IDs}})
	}
	if f.PublicOnly {
		and = append(and, bson.M{"public": true})
	}
	if f.ReadableBy != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"public": true},
			bson.M{"author": f.ReadableBy},
			bson.M{"editors": f.ReadableBy},
		}})
	}
	if f.Query != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": rx},
			bson.M{"content": rx},
			bson.M{"author": rx},
		}})
	}
	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0].(bson.M)
	default:
		return bson.M{"$and": and}
	}
}
