package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository provides session persistence operations. GetByRefresh returns
// (nil, nil) for unknown tokens.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByRefresh(ctx context.Context, refresh string) (*Session, error)
	DeleteByRefresh(ctx context.Context, refresh string) error
	DeleteByUsername(ctx context.Context, username string) (int64, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"refreshToken": refresh}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

func (r *MongoRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"refreshToken": refresh})
	return err
}

func (r *MongoRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// MemoryRepository keeps sessions in process memory
type MemoryRepository struct {
	mu    sync.Mutex
	store map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]Session{}}
}

func (m *MemoryRepository) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.RefreshToken] = *s
	return nil
}

func (m *MemoryRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[refresh]
	if !ok {
		return nil, nil
	}
	if s.expired(time.Now().UTC()) {
		delete(m.store, refresh)
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, refresh)
	return nil
}

func (m *MemoryRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.store {
		if s.Username == username {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}
