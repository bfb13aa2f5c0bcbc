package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func messages(comments []Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.Message)
	}
	return out
}

func TestNormalizeTrailOrdersMixedRepresentations(t *testing.T) {
	doc := bson.M{
		"_id": "t-1",
		"comments": bson.A{
			bson.M{"message": "t3", "timestamp": primitive.NewDateTimeFromTime(time.Unix(3, 0))},
			bson.M{"message": "t1", "timestamp": bson.M{"_seconds": int64(1), "_nanoseconds": int32(0)}},
			bson.M{"message": "t2", "timestamp": "1970-01-01T00:00:02Z"},
		},
	}
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var ticket Ticket
	require.NoError(t, bson.Unmarshal(raw, &ticket))

	entries := NormalizeTrail(&ticket)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, messages(TrailComments(&ticket)))
	assert.Equal(t, []int{1, 2, 0}, []int{entries[0].Index, entries[1].Index, entries[2].Index})
}

func TestNormalizeTrailIsStableOnTies(t *testing.T) {
	same := NewTimestamp(time.Unix(100, 0))
	ticket := &Ticket{Comments: []Comment{
		{Message: "first", Timestamp: same},
		{Message: "second", Timestamp: NewTimestamp(time.Unix(100, 900))},
		{Message: "third", Timestamp: same},
	}}

	assert.Equal(t, []string{"first", "second", "third"}, messages(TrailComments(ticket)))
}

func TestNormalizeTrailSynthesizesLegacyResponses(t *testing.T) {
	t1 := NewTimestamp(time.Unix(2000, 0))
	t2 := NewTimestamp(time.Unix(1000, 0))
	ticket := &Ticket{
		AdminResponses:    []LegacyResponse{{Message: "A", Timestamp: t1}},
		CustomerResponses: []LegacyResponse{{Message: "B", Timestamp: t2}},
	}

	entries := NormalizeTrail(ticket)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Message)
	assert.Equal(t, AuthorRoleCustomer, entries[0].AuthorRole)
	assert.Equal(t, "A", entries[1].Message)
	assert.Equal(t, AuthorRoleAdmin, entries[1].AuthorRole)
	assert.Equal(t, -1, entries[0].Index)

	assert.Empty(t, ticket.Comments, "normalization must not write back")
	assert.Len(t, ticket.AdminResponses, 1)
}

func TestNormalizeTrailPrefersUnifiedComments(t *testing.T) {
	ticket := &Ticket{
		Comments:       []Comment{{Message: "new"}},
		AdminResponses: []LegacyResponse{{Message: "old"}},
	}
	assert.False(t, ticket.HasLegacyTrail())
	assert.Equal(t, []string{"new"}, messages(TrailComments(ticket)))
}

func TestNormalizeTrailMarksEdits(t *testing.T) {
	edited := NewTimestamp(time.Now())
	ticket := &Ticket{Comments: []Comment{{Message: "x", LastEditedAt: &edited, LastEditedBy: "Ana"}, {Message: "y"}}}

	entries := NormalizeTrail(ticket)
	assert.True(t, entries[0].Edited)
	assert.False(t, entries[1].Edited)
	assert.Nil(t, NormalizeTrail(nil))
}
