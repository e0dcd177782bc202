// Package payload reads values out of loosely-typed documents, the shape
// records take after being decoded from MongoDB or from a JSON body.
package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// Lookup walks a nested document along path. It reports false when any
// segment is missing or the final value is nil.
func Lookup(doc any, path ...string) (any, bool) {
	cur := doc
	for _, key := range path {
		next, ok := field(cur, key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func field(doc any, key string) (any, bool) {
	switch d := doc.(type) {
	case map[string]any:
		v, ok := d[key]
		return v, ok
	case primitive.M:
		v, ok := d[key]
		return v, ok
	case primitive.D:
		for _, e := range d {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

// Float converts v to a float64. A string is read from its leading numeric
// prefix, so "12.5 kg" reads as 12.5 while "approx 12" and "1e400" fail.
func Float(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseString(n)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseString(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NonNegative is Float with every failure, and every negative value, mapped
// to zero.
func NonNegative(v any) float64 {
	f, ok := Float(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// Time reads a timestamp from the first of keys that holds one. Date-only
// strings are taken as UTC midnight.
func Time(doc any, keys ...string) (time.Time, bool) {
	return TimeIn(doc, time.UTC, keys...)
}

// TimeIn is Time with date-only strings read as midnight in loc.
func TimeIn(doc any, loc *time.Location, keys ...string) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, key := range keys {
		v, ok := Lookup(doc, key)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case *time.Time:
			if t != nil {
				return *t, true
			}
		case primitive.DateTime:
			return t.Time(), true
		case primitive.Timestamp:
			return time.Unix(int64(t.T), 0), true
		case string:
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return parsed, true
			}
			if parsed, err := time.ParseInLocation("2006-01-02", t, loc); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// ID renders a document identifier as a string.
func ID(doc any) string {
	for _, key := range []string{"_id", "id"} {
		v, ok := Lookup(doc, key)
		if !ok {
			continue
		}
		switch id := v.(type) {
		case primitive.ObjectID:
			return id.Hex()
		case string:
			return id
		default:
			return fmt.Sprint(id)
		}
	}
	return ""
}

// String reads a string field, returning "" when absent.
func String(doc any, key string) string {
	v, ok := Lookup(doc, key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
