package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/servicedesk/internal/domain"
)

const ticketsCollection = "tickets"

type mongoTicketRepository struct {
	collection *mongo.Collection
}

// NewMongoTicketRepository stores tickets as documents in the tickets collection.
func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{collection: db.Collection(ticketsCollection)}
}

// EnsureTicketIndexes creates the lookup indexes used by list filters.
func EnsureTicketIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ticketsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ticketNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo.email", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "created", Value: -1}}},
	})
	return err
}

func (r *mongoTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	_, err := r.collection.InsertOne(ctx, ticket)
	return err
}

func (r *mongoTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *mongoTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if len(filter.Priorities) > 0 {
		query["priority"] = bson.M{"$in": filter.Priorities}
	}
	if len(filter.Categories) > 0 {
		query["category"] = bson.M{"$in": filter.Categories}
	}
	if filter.AssigneeEmail != nil {
		query["assignedTo.email"] = caseInsensitive(*filter.AssigneeEmail)
	}
	if filter.RequesterEmail != nil {
		query["email"] = caseInsensitive(*filter.RequesterEmail)
	}
	created := bson.M{}
	if filter.CreatedFrom != nil {
		created["$gte"] = *filter.CreatedFrom
	}
	if filter.CreatedTo != nil {
		created["$lte"] = *filter.CreatedTo
	}
	if len(created) > 0 {
		query["created"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []domain.Ticket{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *mongoTicketRepository) Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	filter := bson.M{"_id": id}
	set := bson.M(patch.fields())
	update := bson.M{}

	if patch.EditComment != nil {
		if patch.EditComment.Index < 0 {
			return nil, ErrCommentIndex
		}
		path := patch.EditComment.editPath()
		filter[path] = bson.M{"$exists": true}
		set[path] = patch.EditComment.Comment
	}
	update["$set"] = set
	if patch.AppendComment != nil {
		update["$push"] = bson.M{"comments": *patch.AppendComment}
	}
	if patch.ClearLegacyResponses {
		update["$unset"] = bson.M{"adminResponses": "", "customerResponses": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ticket domain.Ticket
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ticket); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("patch ticket: %w", err)
		}
		if patch.EditComment != nil {
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return nil, ErrCommentIndex
			}
		}
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *mongoTicketRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func caseInsensitive(value string) bson.M {
	return bson.M{"$regex": "^" + regexpQuote(value) + "$", "$options": "i"}
}

func regexpQuote(s string) string {
	const special = `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
