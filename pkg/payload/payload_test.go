package payload

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"result": map[string]any{
			"CO2": primitive.M{"value": 5000},
		},
		"emissions": primitive.D{{Key: "CO2", Value: "2000"}},
		"empty":     nil,
	}

	v, ok := Lookup(doc, "result", "CO2", "value")
	assert.True(t, ok)
	assert.Equal(t, 5000, v)

	v, ok = Lookup(doc, "emissions", "CO2")
	assert.True(t, ok)
	assert.Equal(t, "2000", v)

	_, ok = Lookup(doc, "empty")
	assert.False(t, ok)

	_, ok = Lookup(doc, "result", "CH4", "value")
	assert.False(t, ok)

	_, ok = Lookup(doc, "result", "CO2", "value", "deeper")
	assert.False(t, ok)
}

func TestFloat(t *testing.T) {
	dec, err := primitive.ParseDecimal128("12.75")
	assert.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int32", int32(7), 7, true},
		{"int64", int64(9), 9, true},
		{"json number", json.Number("3.25"), 3.25, true},
		{"decimal128", dec, 12.75, true},
		{"plain string", " 2000 ", 2000, true},
		{"string with unit", "12.5 kg", 12.5, true},
		{"scientific string", "1e3", 1000, true},
		{"scientific with unit", "1.5e3 kg", 1500, true},
		{"leading dot", ".5t", 0.5, true},
		{"dangling exponent", "2e kg", 2, true},
		{"text before number", "approx 5000", 0, false},
		{"number inside note", "N/A (was 500)", 0, false},
		{"overflowing string", "1e400", 0, false},
		{"infinity string", "Infinity", 0, false},
		{"garbage string", "n/a", 0, false},
		{"empty string", "", 0, false},
		{"NaN", math.NaN(), 0, false},
		{"Inf", math.Inf(1), 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNonNegative(t *testing.T) {
	assert.Equal(t, 0.0, NonNegative(-4.0))
	assert.Equal(t, 0.0, NonNegative("abc"))
	assert.Equal(t, 4.0, NonNegative("4"))
}

func TestTime(t *testing.T) {
	want := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	got, ok := Time(map[string]any{"createdAt": primitive.NewDateTimeFromTime(want)}, "createdAt")
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = Time(map[string]any{"timestamp": "2026-03-04T10:00:00Z"}, "createdAt", "timestamp")
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = Time(map[string]any{"createdAt": "2026-03-04"}, "createdAt")
	assert.True(t, ok)
	assert.Equal(t, 4, got.Day())

	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)
	got, ok = TimeIn(map[string]any{"createdAt": "2026-03-04"}, ny, "createdAt")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, ny), got)
	assert.Equal(t, time.Wednesday, got.In(ny).Weekday())

	got, ok = TimeIn(map[string]any{"createdAt": "2026-03-04T02:00:00Z"}, ny, "createdAt")
	assert.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())

	_, ok = Time(map[string]any{"createdAt": "yesterday"}, "createdAt")
	assert.False(t, ok)
}

func TestID(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), ID(map[string]any{"_id": oid}))
	assert.Equal(t, "abc", ID(map[string]any{"id": "abc"}))
	assert.Equal(t, "", ID(map[string]any{}))
}
