package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Timestamp is the canonical instant used across tickets and comments.
// It decodes every representation stored records carry: store-native dates,
// {seconds,nanoseconds} / {_seconds,_nanoseconds} pairs, ISO strings and
// epoch-millisecond numbers.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC()}
}

// IsSet reports whether the timestamp holds an instant.
func (t Timestamp) IsSet() bool {
	return !t.Time.IsZero()
}

// EpochSeconds is the ordering key for audit trails.
func (t Timestamp) EpochSeconds() int64 {
	return t.Unix()
}

// Ptr returns a pointer to a copy of t.
func (t Timestamp) Ptr() *Timestamp {
	return &t
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp normalizes any supported representation into a time.
func ParseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case Timestamp:
		return v.Time, nil
	case *Timestamp:
		if v == nil {
			return time.Time{}, nil
		}
		return v.Time, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return *v, nil
	case primitive.DateTime:
		return v.Time(), nil
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0), nil
	case string:
		return parseTimestampString(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %w", err)
		}
		return fromEpochMillis(f), nil
	case float64:
		return fromEpochMillis(v), nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case int32:
		return time.UnixMilli(int64(v)), nil
	case bson.M:
		return fromSecondsMap(map[string]any(v))
	case bson.D:
		return fromSecondsMap(v.Map())
	case map[string]any:
		return fromSecondsMap(v)
	default:
		return time.Time{}, fmt.Errorf("timestamp: unsupported representation %T", value)
	}
}

func parseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochMillis(f), nil
	}
	return time.Time{}, fmt.Errorf("timestamp: unrecognized string %q", s)
}

func fromEpochMillis(ms float64) time.Time {
	whole := math.Floor(ms)
	return time.UnixMilli(int64(whole)).Add(time.Duration((ms - whole) * float64(time.Millisecond)))
}

func fromSecondsMap(m map[string]any) (time.Time, error) {
	secRaw, ok := m["seconds"]
	if !ok {
		secRaw, ok = m["_seconds"]
	}
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp: object without seconds field")
	}
	secs, err := toInt64(secRaw)
	if err != nil {
		return time.Time{}, err
	}
	var nanos int64
	for _, key := range []string{"nanoseconds", "_nanoseconds", "nanos"} {
		if raw, ok := m[key]; ok {
			if nanos, err = toInt64(raw); err != nil {
				return time.Time{}, err
			}
			break
		}
	}
	return time.Unix(secs, nanos), nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		return int64(f), err
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("timestamp: non-numeric component %T", v)
	}
}

// MarshalJSON encodes the instant as RFC3339 or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts every supported representation.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = NewTimestamp(parsed)
	return nil
}

// MarshalBSONValue stores the instant as a native BSON date.
func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !t.IsSet() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(primitive.NewDateTimeFromTime(t.Time))
}

// UnmarshalBSONValue accepts native dates as well as legacy string and object shapes.
func (t *Timestamp) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	val := bsoncore.Value{Type: bt, Data: data}
	var parsed time.Time
	var err error
	switch bt {
	case bson.TypeNull, bson.TypeUndefined:
		*t = Timestamp{}
		return nil
	case bson.TypeDateTime:
		parsed = val.Time()
	case bson.TypeTimestamp:
		sec, _ := val.Timestamp()
		parsed = time.Unix(int64(sec), 0)
	case bson.TypeString:
		parsed, err = parseTimestampString(val.StringValue())
	case bson.TypeInt64:
		parsed = time.UnixMilli(val.Int64())
	case bson.TypeInt32:
		parsed = time.UnixMilli(int64(val.Int32()))
	case bson.TypeDouble:
		parsed = fromEpochMillis(val.Double())
	case bson.TypeEmbeddedDocument:
		var doc bson.M
		if err = bson.Unmarshal(data, &doc); err == nil {
			parsed, err = fromSecondsMap(doc)
		}
	default:
		err = fmt.Errorf("timestamp: unsupported bson type %s", bt)
	}
	if err != nil {
		return err
	}
	*t = NewTimestamp(parsed)
	return nil
}
