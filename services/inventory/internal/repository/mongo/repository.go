package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/stockhold/services/inventory/internal/repository"
)

const (
	stockCollection    = "stock"
	countersCollection = "counters"
	stockCounterID     = "stock_id"
)

// StockDocument представляет документ в коллекции stock
type StockDocument struct {
	ID         int64     `bson:"_id"`
	ProductID  int64     `bson:"product_id"`
	LocationID int64     `bson:"location_id"`
	Available  int64     `bson:"available"`
	Reserved   int64     `bson:"reserved"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d StockDocument) toRecord() repository.StockRecord {
	return repository.StockRecord{
		ID:          d.ID,
		ProductRef:  d.ProductID,
		LocationRef: d.LocationID,
		Available:   d.Available,
		Reserved:    d.Reserved,
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// Repository реализует StockRepository используя MongoDB
type Repository struct {
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// NewRepository создаёт MongoDB репозиторий.
// Создаёт уникальный индекс на паре product_id/location_id.
func NewRepository(ctx context.Context, client *mongo.Client, dbName string) (*Repository, error) {
	db := client.Database(dbName)
	col := db.Collection(stockCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "location_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("create stock index: %w", err)
	}

	return &Repository{
		col:      col,
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}, nil
}

func (r *Repository) Create(ctx context.Context, rec repository.StockRecord) (repository.StockRecord, error) {
	if rec.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return repository.StockRecord{}, err
		}
		rec.ID = id
	}

	doc := StockDocument{
		ID:         rec.ID,
		ProductID:  rec.ProductRef,
		LocationID: rec.LocationRef,
		Available:  rec.Available,
		Reserved:   rec.Reserved,
		UpdatedAt:  r.now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.StockRecord{}, repository.ErrAlreadyExists
		}
		return repository.StockRecord{}, err
	}
	return doc.toRecord(), nil
}

// nextID выдаёт следующий идентификатор через счётчик в коллекции counters
func (r *Repository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": stockCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next stock id: %w", err)
	}
	return counter.Seq, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (repository.StockRecord, error) {
	var doc StockDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, err
	}
	return doc.toRecord(), nil
}

func (r *Repository) List(ctx context.Context, filter repository.StockFilter) ([]repository.StockRecord, error) {
	query := bson.M{}
	if filter.ProductRef != nil {
		query["product_id"] = *filter.ProductRef
	}
	if filter.LocationRef != nil {
		query["location_id"] = *filter.LocationRef
	}

	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []StockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]repository.StockRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, nil
}

func (r *Repository) Set(ctx context.Context, id, available, reserved int64) (repository.StockRecord, error) {
	update := bson.M{"$set": bson.M{
		"available":  available,
		"reserved":   reserved,
		"updated_at": r.now().UTC(),
	}}
	return r.findAndUpdate(ctx, bson.M{"_id": id}, update)
}

// Reserve атомарная операция: документ обновляется, только если available >= amount.
// Если документ не совпал, повторное чтение различает отсутствие записи и нехватку.
func (r *Repository) Reserve(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	filter := bson.M{
		"_id":       id,
		"available": bson.M{"$gte": amount},
	}
	update := bson.M{
		"$inc": bson.M{"available": -amount, "reserved": amount},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}

	rec, err := r.findAndUpdate(ctx, filter, update)
	if !errors.Is(err, repository.ErrNotFound) {
		return rec, err
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return repository.StockRecord{}, err
	}
	return repository.StockRecord{}, &repository.InsufficientError{Available: current.Available, Requested: amount}
}

// Release pipeline update: reserved = max(reserved - amount, 0), available += amount
func (r *Repository) Release(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "available", Value: bson.D{{Key: "$add", Value: bson.A{"$available", amount}}}},
			{Key: "reserved", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{"$reserved", amount}}},
			}}}},
			{Key: "updated_at", Value: r.now().UTC()},
		}}},
	}
	return r.findAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *Repository) findAndUpdate(ctx context.Context, filter, update any) (repository.StockRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc StockDocument
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, err
	}
	return doc.toRecord(), nil
}
