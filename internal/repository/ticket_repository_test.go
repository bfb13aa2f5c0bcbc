package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestTicketPatchApply(t *testing.T) {
	ts := domain.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	by := "Lead"
	ticket := &domain.Ticket{
		AssignedTo:     &domain.Assignee{Email: "old@example.com"},
		AssignedBy:     &by,
		Comments:       []domain.Comment{{Message: "first"}},
		AdminResponses: []domain.LegacyResponse{{Message: "legacy"}},
	}

	edited := domain.Comment{Message: "first, edited"}
	require.NoError(t, TicketPatch{
		ClearAssignee:        true,
		ClearLegacyResponses: true,
		EditComment:          &CommentEdit{Index: 0, Comment: edited},
		AppendComment:        &domain.Comment{Message: "second"},
		LastUpdated:          ts,
	}.Apply(ticket))

	assert.Nil(t, ticket.AssignedTo)
	assert.Nil(t, ticket.AssignedBy)
	assert.Nil(t, ticket.AdminResponses)
	require.Len(t, ticket.Comments, 2)
	assert.Equal(t, "first, edited", ticket.Comments[0].Message)
	assert.Equal(t, "second", ticket.Comments[1].Message)
	assert.True(t, ts.Equal(ticket.LastUpdated.Time))
}

func TestTicketPatchFields(t *testing.T) {
	status := domain.TicketStatusClosed
	fields := TicketPatch{Status: &status, ClearAssignee: true}.fields()

	assert.Equal(t, domain.TicketStatusClosed, fields["status"])
	assert.Contains(t, fields, "assignedTo")
	assert.Nil(t, fields["assignedTo"])
	assert.Contains(t, fields, "lastUpdated")
	assert.NotContains(t, fields, "priority")
}

func TestBuildPatchQuery(t *testing.T) {
	query, args, err := buildPatchQuery("id-1", TicketPatch{
		AppendComment: &domain.Comment{Message: "hi"},
	})
	require.NoError(t, err)
	assert.Len(t, args, 3)
	assert.Contains(t, query, "jsonb_set(doc || $2::jsonb, '{comments}'")
	assert.Contains(t, query, "RETURNING doc")

	query, args, err = buildPatchQuery("id-1", TicketPatch{
		EditComment: &CommentEdit{Index: 2, Comment: domain.Comment{Message: "x"}},
	})
	require.NoError(t, err)
	assert.Len(t, args, 4)
	assert.Equal(t, "2", args[2])
	assert.True(t, strings.Contains(query, "jsonb_array_length(COALESCE(doc->'comments', '[]'::jsonb)) > 2"))

	query, _, err = buildPatchQuery("id-1", TicketPatch{ClearLegacyResponses: true})
	require.NoError(t, err)
	assert.Contains(t, query, "- 'adminResponses' - 'customerResponses'")

	_, _, err = buildPatchQuery("id-1", TicketPatch{EditComment: &CommentEdit{Index: -1}})
	assert.ErrorIs(t, err, ErrCommentIndex)
}

func TestRegexpQuote(t *testing.T) {
	assert.Equal(t, `a\.b\+c@example\.com`, regexpQuote("a.b+c@example.com"))
}
