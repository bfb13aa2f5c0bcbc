package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name  string
		value any
	}{
		{name: "time value", value: want},
		{name: "iso string", value: "2024-03-14T09:26:53Z"},
		{name: "iso string with offset", value: "2024-03-14T11:26:53+02:00"},
		{name: "seconds object", value: map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(0)}},
		{name: "underscore seconds object", value: map[string]any{"_seconds": want.Unix(), "_nanoseconds": 0}},
		{name: "bson seconds document", value: bson.M{"_seconds": want.Unix()}},
		{name: "bson datetime", value: primitive.NewDateTimeFromTime(want)},
		{name: "bson timestamp", value: primitive.Timestamp{T: uint32(want.Unix())}},
		{name: "epoch millis", value: float64(want.UnixMilli())},
		{name: "epoch millis json number", value: json.Number("1710408413000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			require.NoError(t, err)
			assert.Equal(t, want.Unix(), got.Unix())
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("not a date")
	assert.Error(t, err)

	_, err = ParseTimestamp(map[string]any{"minutes": 3})
	assert.Error(t, err)

	_, err = ParseTimestamp(struct{}{})
	assert.Error(t, err)
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC))

	raw, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02T03:04:05.0000006Z"`, string(raw))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, ts.Equal(decoded.Time))

	raw, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestTimestampUnmarshalJSONShapes(t *testing.T) {
	var c struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
		D Timestamp `json:"d"`
	}
	payload := `{"a":"1970-01-01T00:00:07Z","b":{"seconds":7,"nanoseconds":0},"c":{"_seconds":7},"d":7000}`
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	for _, ts := range []Timestamp{c.A, c.B, c.C, c.D} {
		assert.Equal(t, int64(7), ts.EpochSeconds())
	}
}

func TestTimestampBSON(t *testing.T) {
	when := time.Date(2023, 11, 5, 12, 0, 0, 0, time.UTC)
	doc := bson.M{
		"native": primitive.NewDateTimeFromTime(when),
		"iso":    "2023-11-05T12:00:00Z",
		"pair":   bson.M{"seconds": when.Unix(), "nanoseconds": int32(0)},
		"empty":  nil,
	}
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded struct {
		Native Timestamp `bson:"native"`
		ISO    Timestamp `bson:"iso"`
		Pair   Timestamp `bson:"pair"`
		Empty  Timestamp `bson:"empty"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, when.Unix(), decoded.Native.Unix())
	assert.Equal(t, when.Unix(), decoded.ISO.Unix())
	assert.Equal(t, when.Unix(), decoded.Pair.Unix())
	assert.False(t, decoded.Empty.IsSet())

	out, err := bson.Marshal(struct {
		At Timestamp `bson:"at"`
	}{At: NewTimestamp(when)})
	require.NoError(t, err)
	var native bson.M
	require.NoError(t, bson.Unmarshal(out, &native))
	assert.IsType(t, primitive.DateTime(0), native["at"])
}
