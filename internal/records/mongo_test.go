package records

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/periods"
	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

type fakeFinder struct {
	mu      sync.Mutex
	docs    map[string][]bson.M
	fail    map[string]error
	filters map[string]bson.M
	sorts   map[string]any
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{
		docs:    map[string][]bson.M{},
		fail:    map[string]error{},
		filters: map[string]bson.M{},
		sorts:   map[string]any{},
	}
}

func (f *fakeFinder) Find(_ context.Context, collection string, filter bson.M, opts ...*options.FindOptions) ([]bson.M, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters[collection] = filter
	for _, o := range opts {
		if o != nil && o.Sort != nil {
			f.sorts[collection] = o.Sort
		}
	}
	if err := f.fail[collection]; err != nil {
		return nil, err
	}
	return f.docs[collection], nil
}

func testRange(t *testing.T) periods.DateRange {
	t.Helper()
	r, err := periods.ParseDateRange("2026-10-01", "2026-10-07", time.UTC)
	require.NoError(t, err)
	return r
}

func TestFetchEmissions(t *testing.T) {
	finder := newFakeFinder()
	finder.docs["electricities"] = []bson.M{
		{"_id": primitive.NewObjectID(), "result": bson.M{"CO2": bson.M{"value": 2000}}},
	}
	finder.docs["methanes"] = []bson.M{
		{"totalMethane": int32(3)},
		{"totalMethane": "1.5"},
	}

	store := NewStore(finder, nil, zap.NewNop())
	bundle, err := store.FetchEmissions(context.Background(), testRange(t))
	require.NoError(t, err)

	assert.Len(t, bundle, len(emissions.Categories))
	assert.Len(t, bundle["electricity"], 1)
	assert.Len(t, bundle["methane"], 2)
	assert.Empty(t, bundle["shipping"])

	res := emissions.Aggregate(bundle, nil)
	assert.InDelta(t, 6.5, res.GrandTotal, 1e-9)

	filter := finder.filters["coalemissions"]
	created, ok := filter["createdAt"].(bson.M)
	require.True(t, ok)
	from := created["$gte"].(time.Time)
	to := created["$lte"].(time.Time)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 10, 7, 23, 59, 59, int(999*time.Millisecond), time.UTC), to)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: 1}}, finder.sorts["shippings"])
}

func TestFetchEmissionsSourceFailure(t *testing.T) {
	finder := newFakeFinder()
	finder.fail["shippings"] = errors.New("connection reset")

	store := NewStore(finder, nil, zap.NewNop())
	bundle, err := store.FetchEmissions(context.Background(), testRange(t))
	assert.Nil(t, bundle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shippings")
}

func TestFetchSinks(t *testing.T) {
	finder := newFakeFinder()
	finder.docs["green_zones"] = []bson.M{
		{"name": "Tailings berm", "vegetationType": "grassland", "areaCovered": 365, "carbonSequestrationRate": 2.0},
	}
	finder.docs["sinks"] = []bson.M{
		{"name": "Planned belt", "areaCovered": 10.0},
	}

	store := NewStore(finder, map[string]string{ExistingSinks: "green_zones"}, nil)

	existing, err := store.FetchSinks(context.Background(), testRange(t), sinks.KindExisting)
	require.NoError(t, err)
	require.Len(t, existing, 1)
	assert.Equal(t, sinks.KindExisting, existing[0].Kind)
	assert.InDelta(t, 2.0, sinks.DailyAbsorption(existing[0]), 1e-9)

	planned, err := store.FetchSinks(context.Background(), testRange(t), sinks.KindPlanned)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "Planned belt", planned[0].Name)
}
