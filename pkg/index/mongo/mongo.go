// Package mongo stores index records in a MongoDB collection and queries them
// through an Atlas $vectorSearch stage.
package mongo

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"profanity/pkg/index"
)

var _ index.Store = (*Storage)(nil)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")
)

const DefaultNumCandidates = 50

type Storage struct {
	client        *mongo.Client
	coll          *mongo.Collection
	indexName     string
	numCandidates int
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	numCandidates := conf.NumCandidates
	if numCandidates <= 0 {
		numCandidates = DefaultNumCandidates
	}

	s := Storage{
		client:        client,
		coll:          client.Database(conf.DBName).Collection(conf.collection()),
		indexName:     conf.indexName(),
		numCandidates: numCandidates,
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// Upsert replaces documents by record ID, inserting missing ones.
func (s *Storage) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if err := index.Validate(records, 0); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(r).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}

	n := int(res.UpsertedCount + res.MatchedCount)
	log.Debugf("[mongo] upserted %d records", n)
	return n, nil
}

type searchHit struct {
	ID       string         `bson:"_id"`
	Metadata index.Metadata `bson:"metadata"`
	Score    float64        `bson:"score"`
}

// Query runs $vectorSearch. Atlas reports cosine similarity as (1+cos)/2;
// scores are converted back before clamping.
func (s *Storage) Query(ctx context.Context, vector []float32, opts index.QueryOptions) ([]index.Match, error) {
	if opts.TopK <= 0 {
		return []index.Match{}, nil
	}

	cur, err := s.coll.Aggregate(ctx, searchPipeline(s.indexName, vector, opts.TopK, s.numCandidates))
	if err != nil {
		return nil, err
	}

	var hits []searchHit
	if err := cur.All(ctx, &hits); err != nil {
		return nil, err
	}

	matches := make([]index.Match, 0, len(hits))
	for _, h := range hits {
		m := index.Match{ID: h.ID, Score: index.Clamp(2*h.Score - 1)}
		if opts.ReturnMetadata {
			md := h.Metadata
			m.Metadata = &md
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func searchPipeline(indexName string, vector []float32, topK, numCandidates int) mongo.Pipeline {
	if numCandidates < topK {
		numCandidates = topK
	}

	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: indexName},
			{Key: "path", Value: "values"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: topK},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "metadata", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}
