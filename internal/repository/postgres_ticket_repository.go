package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository stores tickets as JSONB documents.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

func (r *postgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	doc, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	const query = `INSERT INTO tickets (id, doc, created_at, updated_at) VALUES ($1, $2::jsonb, $3, NOW())`
	_, err = r.pool.Exec(ctx, query, ticket.ID, doc, ticket.Created.Time)
	return err
}

func (r *postgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var doc []byte
	if err := r.pool.QueryRow(ctx, `SELECT doc FROM tickets WHERE id=$1`, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeTicket(doc)
}

func (r *postgresTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}
	in("status", toStrings(filter.Statuses))
	in("priority", toStrings(filter.Priorities))
	in("category", toStrings(filter.Categories))

	if filter.AssigneeEmail != nil {
		args = append(args, strings.ToLower(*filter.AssigneeEmail))
		clauses = append(clauses, fmt.Sprintf("assignee_email=$%d", len(args)))
	}
	if filter.RequesterEmail != nil {
		args = append(args, strings.ToLower(*filter.RequesterEmail))
		clauses = append(clauses, fmt.Sprintf("requester_email=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT doc FROM tickets WHERE %s ORDER BY updated_at DESC`, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		ticket, err := decodeTicket(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *postgresTicketRepository) Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query, args, err := buildPatchQuery(id, patch)
	if err != nil {
		return nil, err
	}

	var doc []byte
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if patch.EditComment != nil {
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return nil, ErrCommentIndex
			}
		}
		return nil, ErrNotFound
	}
	return decodeTicket(doc)
}

func (r *postgresTicketRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildPatchQuery composes one UPDATE that merges the patch into the stored
// document, so field changes and the audit comment land together.
func buildPatchQuery(id string, patch TicketPatch) (string, []any, error) {
	set, err := json.Marshal(patch.fields())
	if err != nil {
		return "", nil, fmt.Errorf("encode patch: %w", err)
	}
	args := []any{id, set}
	expr := "doc || $2::jsonb"
	where := "id=$1"

	if patch.ClearLegacyResponses {
		expr = fmt.Sprintf("(%s) - 'adminResponses' - 'customerResponses'", expr)
	}
	if patch.EditComment != nil {
		if patch.EditComment.Index < 0 {
			return "", nil, ErrCommentIndex
		}
		comment, err := json.Marshal(patch.EditComment.Comment)
		if err != nil {
			return "", nil, fmt.Errorf("encode comment: %w", err)
		}
		args = append(args, strconv.Itoa(patch.EditComment.Index), comment)
		expr = fmt.Sprintf("jsonb_set(%s, ARRAY['comments', $%d::text], $%d::jsonb, false)", expr, len(args)-1, len(args))
		where += fmt.Sprintf(" AND jsonb_array_length(COALESCE(doc->'comments', '[]'::jsonb)) > %d", patch.EditComment.Index)
	}
	if patch.AppendComment != nil {
		comment, err := json.Marshal([]domain.Comment{*patch.AppendComment})
		if err != nil {
			return "", nil, fmt.Errorf("encode comment: %w", err)
		}
		args = append(args, comment)
		expr = fmt.Sprintf("jsonb_set(%s, '{comments}', COALESCE(doc->'comments', '[]'::jsonb) || $%d::jsonb)", expr, len(args))
	}

	query := fmt.Sprintf(`UPDATE tickets SET doc = %s, updated_at = NOW() WHERE %s RETURNING doc`, expr, where)
	return query, args, nil
}

func decodeTicket(doc []byte) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := json.Unmarshal(doc, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	return &ticket, nil
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
