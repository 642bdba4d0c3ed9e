package booking

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Insert(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id string) (Booking, error)
	List(ctx context.Context, filter ListFilter, limit int64) ([]Booking, error)
	BookedTimes(ctx context.Context, date, serviceType string) ([]string, error)
	PendingDates(ctx context.Context, from, to string) ([]string, error)
	UpdateStatus(ctx context.Context, id, status, reason string, now time.Time) (Booking, error)
	UpdateSchedule(ctx context.Context, id, date, timeSlot, message string, now time.Time) (Booking, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, b Booking) error {
	_, err := r.col.InsertOne(ctx, b)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Booking, error) {
	var b Booking
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit int64) ([]Booking, error) {
	query := bson.M{}
	if filter.Date != "" {
		query["date"] = filter.Date
	} else if filter.FromDate != "" {
		query["date"] = bson.M{"$gte": filter.FromDate}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ExcludeDeclined && filter.Status == "" {
		query["status"] = bson.M{"$ne": StatusDeclined}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Booking, 0)
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// BookedTimes returns the raw time values holding a slot on a date for a
// service. A slot is held by any pending or approved booking; declined
// ones release it.
func (r *MongoRepository) BookedTimes(ctx context.Context, date, serviceType string) ([]string, error) {
	query := bson.M{
		"date":   date,
		"status": bson.M{"$in": bson.A{StatusPending, StatusApproved}},
	}
	if serviceType != "" {
		query["service_type"] = serviceType
	}

	opts := options.Find().SetProjection(bson.M{"time": 1})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	times := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Time string `bson:"time"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Time != "" {
			times = append(times, doc.Time)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return times, nil
}

func (r *MongoRepository) PendingDates(ctx context.Context, from, to string) ([]string, error) {
	query := bson.M{
		"status": StatusPending,
		"date":   bson.M{"$gte": from, "$lte": to},
	}
	raw, err := r.col.Distinct(ctx, "date", query)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			dates = append(dates, s)
		}
	}
	return dates, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id, status, reason string, now time.Time) (Booking, error) {
	set := bson.M{
		"status":     status,
		"updated_at": now,
	}
	if reason != "" {
		set["decline_reason"] = reason
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Booking
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) UpdateSchedule(ctx context.Context, id, date, timeSlot, message string, now time.Time) (Booking, error) {
	update := bson.M{
		"$set": bson.M{
			"date":       date,
			"time":       timeSlot,
			"message":    message,
			"updated_at": now,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Booking
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Booking{}, err
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
