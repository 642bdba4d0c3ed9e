package blocks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, block Block) error
	GetByID(ctx context.Context, id string) (Block, error)
	ListForRange(ctx context.Context, from, to string) ([]Block, error)
	Update(ctx context.Context, id string, req UpdateRequest, now time.Time) (Block, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, block Block) error {
	_, err := r.col.InsertOne(ctx, block)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Block, error) {
	var block Block
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&block); err != nil {
		return Block{}, err
	}
	return block, nil
}

// ListForRange returns every block that can produce an occurrence inside
// [from, to]: one-off blocks anchored in the range, plus recurring blocks
// whose recurrence window overlaps it. Recurring blocks without an end
// date only occur at their anchor, so the first clause covers them.
func (r *MongoRepository) ListForRange(ctx context.Context, from, to string) ([]Block, error) {
	query := bson.M{
		"$or": bson.A{
			bson.M{"date": bson.M{"$gte": from, "$lte": to}},
			bson.M{
				"type":     KindRecurring,
				"date":     bson.M{"$lte": to},
				"end_date": bson.M{"$gte": from},
			},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Block, 0)
	for cursor.Next(ctx) {
		var block Block
		if err := cursor.Decode(&block); err != nil {
			return nil, err
		}
		items = append(items, block)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, req UpdateRequest, now time.Time) (Block, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"start_time": req.StartTime,
			"end_time":   req.EndTime,
			"reason":     req.Reason,
			"updated_at": now,
		},
	}

	var updated Block
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Block{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
