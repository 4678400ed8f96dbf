package database

import (
	"context"
	"errors"
	"fmt"
	"gigacode/entity"
	"gigacode/internal/config"
	"gigacode/internal/ledger"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionCodes    = "codes"
	collectionRules    = "format_rules"
	collectionCounters = "counters"
	counterCodes       = "codes"
)

// MongoDB is the persistent code ledger. Ledger order is the seq field,
// allocated from a counter document on every append.
type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// nextSeq reserves n consecutive sequence numbers and returns the first one.
func (m *MongoDB) nextSeq(ctx context.Context, connection *mongo.Client, n int) (int64, error) {
	collection := connection.Database(m.database).Collection(collectionCounters)
	filter := bson.D{{"_id", counterCodes}}
	update := bson.D{{"$inc", bson.D{{"seq", int64(n)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("mongodb counter: %w", err)
	}
	return counter.Seq - int64(n) + 1, nil
}

func (m *MongoDB) Append(ctx context.Context, records []*entity.CodeRecord) error {
	if len(records) == 0 {
		return nil
	}
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	seq, err := m.nextSeq(ctx, connection, len(records))
	if err != nil {
		return err
	}
	docs := make([]interface{}, 0, len(records))
	for i, rec := range records {
		row := *rec
		if row.Id == "" {
			row.Id = uuid.NewString()
		}
		row.Seq = seq + int64(i)
		docs = append(docs, row)
	}
	collection := connection.Database(m.database).Collection(collectionCodes)
	_, err = collection.InsertMany(ctx, docs)
	return err
}

func (m *MongoDB) find(ctx context.Context, connection *mongo.Client, filter bson.D) ([]*entity.CodeRecord, error) {
	collection := connection.Database(m.database).Collection(collectionCodes)
	opts := options.Find().SetSort(bson.D{{"seq", 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, m.findError(err)
	}
	defer cursor.Close(ctx)

	var records []*entity.CodeRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoDB) Deduplicate(ctx context.Context) (int, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	records, err := m.find(ctx, connection, bson.D{})
	if err != nil {
		return 0, err
	}
	dup := ledger.DuplicateIndexes(records)
	if len(dup) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(dup))
	for _, i := range dup {
		ids = append(ids, records[i].Id)
	}
	collection := connection.Database(m.database).Collection(collectionCodes)
	res, err := collection.DeleteMany(ctx, bson.D{{"_id", bson.D{{"$in", ids}}}})
	if err != nil {
		return 0, fmt.Errorf("mongodb delete duplicates: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (m *MongoDB) RefreshPresentation(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRules)
	if _, err = collection.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("mongodb clear rules: %w", err)
	}
	rules := ledger.PresentationRules()
	docs := make([]interface{}, 0, len(rules))
	for _, rule := range rules {
		docs = append(docs, rule)
	}
	_, err = collection.InsertMany(ctx, docs)
	return err
}

func (m *MongoDB) PresentationRules(ctx context.Context) ([]entity.FormatRule, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRules)
	cursor, err := collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{"_id", 1}}))
	if err != nil {
		return nil, m.findError(err)
	}
	defer cursor.Close(ctx)

	var rules []entity.FormatRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// QueryBestUnused narrows the candidates in the database and leaves the
// ordering to the shared ledger rule, so dateless rows sort the same way
// in every store.
func (m *MongoDB) QueryBestUnused(ctx context.Context, prefix string) (*entity.CodeRecord, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{
		{"used", false},
		{"denomination", primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}},
	}
	records, err := m.find(ctx, connection, filter)
	if err != nil {
		return nil, err
	}
	return ledger.BestUnused(records, prefix), nil
}

func (m *MongoDB) QueryUnusedSummary(ctx context.Context) ([]entity.DenominationCount, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"used", false}}}},
		{{"$group", bson.D{
			{"_id", "$denomination"},
			{"count", bson.D{{"$sum", 1}}},
			{"first", bson.D{{"$min", "$seq"}}},
		}}},
		{{"$sort", bson.D{{"first", 1}}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongodb aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var summary []entity.DenominationCount
	if err = cursor.All(ctx, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// MarkUsed flips the earliest unused row of code in a single round trip.
func (m *MongoDB) MarkUsed(ctx context.Context, code string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{"code", code}, {"used", false}}
	update := bson.D{{"$set", bson.D{{"used", true}}}}
	opts := options.FindOneAndUpdate().SetSort(bson.D{{"seq", 1}})
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("mark used %s: %w", code, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("mongodb mark used: %w", err)
	}
	return nil
}

func (m *MongoDB) Records(ctx context.Context) ([]*entity.CodeRecord, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	return m.find(ctx, connection, bson.D{})
}
