package mongodb

import (
	"context"
	"errors"

	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DrawRecordRepository implements the repositories.DrawRecordRepository interface
type DrawRecordRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ repositories.DrawRecordRepository = (*DrawRecordRepository)(nil)

// Connect dials uri, checks the connection and returns a repository on the
// draw_records collection of database.
func Connect(ctx context.Context, uri, database string) (*DrawRecordRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	collection := client.Database(database).Collection("draw_records")
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "poolId", Value: 1}, {Key: "roundNumber", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &DrawRecordRepository{client: client, collection: collection}, nil
}

// AppendRecord inserts a new record
func (r *DrawRecordRepository) AppendRecord(ctx context.Context, record *models.DrawRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

// NextRoundNumber reads the highest round of the pool and adds one
func (r *DrawRecordRepository) NextRoundNumber(ctx context.Context, poolID models.PoolID) (int, error) {
	opts := options.FindOne().SetSort(bson.M{"roundNumber": -1})
	var last models.DrawRecord
	err := r.collection.FindOne(ctx, bson.M{"poolId": poolID}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.RoundNumber + 1, nil
}

// FindByID finds a record by ID
func (r *DrawRecordRepository) FindByID(ctx context.Context, id string) (*models.DrawRecord, error) {
	var record models.DrawRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords returns every record
func (r *DrawRecordRepository) ListRecords(ctx context.Context) ([]models.DrawRecord, error) {
	return r.find(ctx, bson.M{}, options.Find())
}

// ListRecordsByPool returns the records of one pool by round ascending
func (r *DrawRecordRepository) ListRecordsByPool(ctx context.Context, poolID models.PoolID) ([]models.DrawRecord, error) {
	return r.find(ctx, bson.M{"poolId": poolID}, options.Find().SetSort(bson.M{"roundNumber": 1}))
}

// ClearAll deletes all records
func (r *DrawRecordRepository) ClearAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Close disconnects the client
func (r *DrawRecordRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

func (r *DrawRecordRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.DrawRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.DrawRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.DrawRecord{}
	}
	return records, nil
}
