package repository

import (
	"context"
	courtserrors "courtkeeper/internal/courts/errors"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Courts"
)

type CourtRepository interface {
	// FindByID only returns courts that belong to clubID.
	FindByID(ctx context.Context, clubID, id string) (*model.Court, error)
	FindByClub(ctx context.Context, clubID string) ([]*model.Court, error)
	Upsert(ctx context.Context, court *model.Court) error
}

type mongoCourtRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCourtRepository(cfg *config.Config) CourtRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCourtRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoCourtRepository) FindByID(ctx context.Context, clubID, id string) (*model.Court, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	var court model.Court
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "club_id": clubID}).Decode(&court)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, courtserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find court: %w", err)
	}
	return &court, nil
}

func (r *mongoCourtRepository) FindByClub(ctx context.Context, clubID string) ([]*model.Court, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"club_id": clubID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find courts: %w", err)
	}
	defer cursor.Close(ctx)

	courts := make([]*model.Court, 0)
	if err := cursor.All(ctx, &courts); err != nil {
		return nil, fmt.Errorf("failed to decode courts: %w", err)
	}
	return courts, nil
}

// Upsert keeps the original created_at of an existing court.
func (r *mongoCourtRepository) Upsert(ctx context.Context, court *model.Court) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreWriteTimeout)
	defer cancel()

	if court.CreatedAt.IsZero() {
		court.CreatedAt = time.Now().UTC()
	}
	update := bson.M{
		"$set": bson.M{
			"club_id": court.ClubID,
			"name":    court.Name,
			"surface": court.Surface,
			"indoor":  court.Indoor,
			"active":  court.Active,
		},
		"$setOnInsert": bson.M{"created_at": court.CreatedAt},
	}
	_, err := r.collection.UpdateByID(ctx, court.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert court: %w", err)
	}
	return nil
}

// MemoryCourtRepository backs the memory store driver.
type MemoryCourtRepository struct {
	mu     sync.RWMutex
	courts map[string]*model.Court
}

func NewMemoryCourtRepository() *MemoryCourtRepository {
	return &MemoryCourtRepository{courts: make(map[string]*model.Court)}
}

func (m *MemoryCourtRepository) FindByID(ctx context.Context, clubID, id string) (*model.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	court, ok := m.courts[id]
	if !ok || court.ClubID != clubID {
		return nil, courtserrors.ErrNotFound
	}
	c := *court
	return &c, nil
}

func (m *MemoryCourtRepository) FindByClub(ctx context.Context, clubID string) ([]*model.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Court, 0)
	for _, court := range m.courts {
		if court.ClubID == clubID {
			c := *court
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryCourtRepository) Upsert(ctx context.Context, court *model.Court) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *court
	if existing, ok := m.courts[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	m.courts[c.ID] = &c
	return nil
}
