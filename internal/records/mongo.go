// Package records reads emission and sink documents written by the entry
// forms out of MongoDB.
package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

// Collection keys for the sink collections. Emission collections are keyed
// by category name.
const (
	PlannedSinks  = "sinks"
	ExistingSinks = "existingSinks"
)

// DefaultCollections maps bundle keys to the collection names the entry forms
// use.
func DefaultCollections() map[string]string {
	return map[string]string{
		string(emissions.Electricity):    "electricities",
		string(emissions.FuelCombustion): "fuelcombustions",
		string(emissions.Shipping):       "shippings",
		string(emissions.Explosion):      "explosions",
		string(emissions.CoalBurn):       "coalemissions",
		string(emissions.Methane):        "methanes",
		PlannedSinks:                     "sinks",
		ExistingSinks:                    "existingsinks",
	}
}

// Finder runs a query against one collection and returns the raw documents.
type Finder interface {
	Find(ctx context.Context, collection string, filter bson.M, opts ...*options.FindOptions) ([]bson.M, error)
}

// Store implements the report service's record and sink sources.
type Store struct {
	finder      Finder
	collections map[string]string
	logger      *zap.Logger
}

// NewStore creates a store. Entries in collections override the defaults.
func NewStore(finder Finder, collections map[string]string, logger *zap.Logger) *Store {
	names := DefaultCollections()
	for k, v := range collections {
		if v != "" {
			names[k] = v
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{finder: finder, collections: names, logger: logger}
}

// createdBetween selects documents whose createdAt falls on a date in r.
func createdBetween(r periods.DateRange) bson.M {
	from, to := r.Bounds()
	return bson.M{"createdAt": bson.M{"$gte": from, "$lte": to}}
}

func findOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
}

// FetchEmissions loads every emission category for r concurrently.
func (s *Store) FetchEmissions(ctx context.Context, r periods.DateRange) (emissions.Bundle, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	bundle := make(emissions.Bundle, len(emissions.Categories))
	filter := createdBetween(r)
	start := time.Now()

	wg.Add(len(emissions.Categories))
	for _, c := range emissions.Categories {
		go func(c emissions.Category) {
			defer wg.Done()
			coll := s.collections[string(c)]
			docs, err := s.finder.Find(ctx, coll, filter, findOptions())
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", coll, err))
				mu.Unlock()
				return
			}
			payloads := make([]emissions.Payload, len(docs))
			for i, d := range docs {
				payloads[i] = emissions.Payload(d)
			}
			mu.Lock()
			bundle[string(c)] = payloads
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s.logger.Debug("Fetched emission records",
		zap.String("range", r.String()),
		zap.Duration("took", time.Since(start)))
	return bundle, nil
}

// FetchSinks loads sinks of the given kind created within r.
func (s *Store) FetchSinks(ctx context.Context, r periods.DateRange, kind sinks.Kind) ([]sinks.Sink, error) {
	key := PlannedSinks
	if kind == sinks.KindExisting {
		key = ExistingSinks
	}
	coll := s.collections[key]

	docs, err := s.finder.Find(ctx, coll, createdBetween(r), findOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", coll, err)
	}

	out := make([]sinks.Sink, len(docs))
	for i, d := range docs {
		out[i] = sinks.FromDocument(d, kind)
	}
	return out, nil
}

// MongoFinder is a Finder backed by a live database.
type MongoFinder struct {
	db *mongo.Database
}

// NewMongoFinder wraps db.
func NewMongoFinder(db *mongo.Database) *MongoFinder {
	return &MongoFinder{db: db}
}

// Find decodes every matching document.
func (f *MongoFinder) Find(ctx context.Context, collection string, filter bson.M, opts ...*options.FindOptions) ([]bson.M, error) {
	cursor, err := f.db.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}
