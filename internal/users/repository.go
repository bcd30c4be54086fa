package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/domperidog/docshare/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// FavoriteOp is a single-element favorites mutation.
type FavoriteOp int

const (
	FavoriteAdd FavoriteOp = iota
	FavoriteRemove
)

// UserRepository is the identity store. FindByUsername returns (nil, nil)
// for unknown usernames.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) (string, error)
	Delete(ctx context.Context, username string) error
	UpdateFavorites(ctx context.Context, username string, op FavoriteOp, documentID string) (*models.User, error)
	// ToggleFavorite atomically removes documentID from the favorites when
	// present and adds it otherwise, reporting whether it is now a favorite.
	ToggleFavorite(ctx context.Context, username, documentID string) (*models.User, bool, error)
	// RemoveFavoriteEverywhere strips documentID from every user's favorites.
	RemoveFavoriteEverywhere(ctx context.Context, documentID string) (int64, error)
}

const toggleAttempts = 3

// MongoUserRepository implements UserRepository using MongoDB. Username
// uniqueness relies on the unique index created by database.EnsureIndexes.
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *MongoUserRepository) Insert(ctx context.Context, u *models.User) (string, error) {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateUsername
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, username string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) UpdateFavorites(ctx context.Context, username string, op FavoriteOp, documentID string) (*models.User, error) {
	update := bson.M{"$addToSet": bson.M{"favorites": documentID}}
	if op == FavoriteRemove {
		update = bson.M{"$pull": bson.M{"favorites": documentID}}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"username": username}, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update favorites: %w", err)
	}
	return &u, nil
}

func (r *MongoUserRepository) ToggleFavorite(ctx context.Context, username, documentID string) (*models.User, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		var u models.User
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{"username": username, "favorites": documentID},
			bson.M{"$pull": bson.M{"favorites": documentID}}, opts).Decode(&u)
		if err == nil {
			return &u, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("pull favorite: %w", err)
		}

		err = r.col.FindOneAndUpdate(ctx,
			bson.M{"username": username, "favorites": bson.M{"$ne": documentID}},
			bson.M{"$addToSet": bson.M{"favorites": documentID}}, opts).Decode(&u)
		if err == nil {
			return &u, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("add favorite: %w", err)
		}

		cur, err := r.FindByUsername(ctx, username)
		if err != nil {
			return nil, false, err
		}
		if cur == nil {
			return nil, false, ErrUserNotFound
		}
	}
	return nil, false, fmt.Errorf("toggle favorite: too many concurrent updates for %s", username)
}

func (r *MongoUserRepository) RemoveFavoriteEverywhere(ctx context.Context, documentID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.M{"favorites": documentID}, bson.M{"$pull": bson.M{"favorites": documentID}})
	if err != nil {
		return 0, fmt.Errorf("remove favorite: %w", err)
	}
	return res.ModifiedCount, nil
}

// Usernames streams every username in the collection, for maintenance jobs.
func (r *MongoUserRepository) Usernames(ctx context.Context) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"username": 1}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u.Username)
	}
	return out, cur.Err()
}
