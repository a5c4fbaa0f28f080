package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lugondev/go-cpiswap/internal/storage"
)

type mongoRecordRepository struct {
	collection  *mongo.Collection
	maxAttempts int
}

func (r *mongoRecordRepository) Create(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, &storage.RecordModel{
		Key:       key,
		Data:      data,
		Version:   1,
		UpdatedAt: now,
		CreatedAt: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrRecordExists
	}
	return err
}

func (r *mongoRecordRepository) Get(ctx context.Context, key string) (*storage.RecordModel, error) {
	var rec storage.RecordModel
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update applies fn with a compare-and-set on version. A lost race re-reads
// and re-applies fn, up to maxAttempts times, before giving up with ErrConflict.
func (r *mongoRecordRepository) Update(ctx context.Context, key string, fn storage.UpdateFunc) (*storage.RecordModel, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		rec, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		next, err := fn(rec.Data)
		if err != nil {
			return nil, err
		}

		updatedAt := time.Now().UTC()
		res, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": key, "version": rec.Version},
			bson.M{"$set": bson.M{"data": next, "version": rec.Version + 1, "updated_at": updatedAt}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update record: %w", err)
		}
		if res.MatchedCount == 1 {
			rec.Data = next
			rec.Version++
			rec.UpdatedAt = updatedAt
			return rec, nil
		}
	}
	return nil, storage.ErrConflict
}

type mongoSwapRepository struct {
	collection *mongo.Collection
}

func (r *mongoSwapRepository) Save(ctx context.Context, swap *storage.SwapModel) error {
	_, err := r.collection.InsertOne(ctx, swap)
	return err
}

func (r *mongoSwapRepository) FindByID(ctx context.Context, id string) (*storage.SwapModel, error) {
	var swap storage.SwapModel
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&swap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &swap, nil
}

func (r *mongoSwapRepository) FindRecent(ctx context.Context, limit int, offset int) ([]*storage.SwapModel, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoSwapRepository) FindByCaller(ctx context.Context, caller string, limit int, offset int) ([]*storage.SwapModel, error) {
	return r.find(ctx, bson.M{"caller": caller}, limit, offset)
}

func (r *mongoSwapRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*storage.SwapModel, error) {
	opts := options.Find().SetSkip(int64(offset)).SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var swaps []*storage.SwapModel
	if err := cursor.All(ctx, &swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}
