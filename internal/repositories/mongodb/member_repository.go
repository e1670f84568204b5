package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMemberCollection is the collection the registry lives in.
const DefaultMemberCollection = "members"

// Compile-time check to ensure MemberRepository implements the interface
var _ repositories.MemberRepository = (*MemberRepository)(nil)

// MemberRepository handles MongoDB operations for Member
type MemberRepository struct {
	collection *mongo.Collection
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *mongo.Database, collection string) *MemberRepository {
	if collection == "" {
		collection = DefaultMemberCollection
	}
	return &MemberRepository{
		collection: db.Collection(collection),
	}
}

// Subscribe opens a change stream on the collection and emits a freshly
// queried, ordered snapshot up front and after every change event. Change
// streams need a replica set or sharded cluster.
func (r *MemberRepository) Subscribe(ctx context.Context, order repositories.SortOrder) (<-chan models.Snapshot, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	// Open the stream before the first read so no change slips between them.
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to watch %s: %w", r.collection.Name(), err)
	}

	out := make(chan models.Snapshot, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer stream.Close(context.Background())

		if !r.emit(ctx, out, order) {
			return
		}
		for stream.Next(ctx) {
			if !r.emit(ctx, out, order) {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			send(ctx, out, models.Snapshot{Err: fmt.Errorf("change stream on %s failed: %w", r.collection.Name(), err)})
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return out, release, nil
}

func (r *MemberRepository) emit(ctx context.Context, out chan<- models.Snapshot, order repositories.SortOrder) bool {
	members, err := r.FindAll(ctx, order)
	if err != nil {
		if ctx.Err() == nil {
			send(ctx, out, models.Snapshot{Err: err})
		}
		return false
	}
	return send(ctx, out, models.Snapshot{Members: members})
}

func send(ctx context.Context, out chan<- models.Snapshot, snap models.Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// FindAll retrieves every member in the requested order
func (r *MemberRepository) FindAll(ctx context.Context, order repositories.SortOrder) ([]*models.Member, error) {
	opts := options.Find()
	if order.Field != "" {
		dir := -1
		if order.Ascending {
			dir = 1
		}
		opts.SetSort(bson.D{{Key: order.Field, Value: dir}, {Key: "_id", Value: 1}})
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}
	if members == nil {
		members = []*models.Member{}
	}
	return members, nil
}

// Create inserts a new member and returns its id
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) (primitive.ObjectID, error) {
	member.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, member); err != nil {
		return primitive.NilObjectID, err
	}
	return member.ID, nil
}

// Update applies a partial update to a member
func (r *MemberRepository) Update(ctx context.Context, id primitive.ObjectID, patch *models.MemberPatch) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": patch.Set()})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrMemberNotFound
	}
	return nil
}

// FindByID reads one member straight from the collection
func (r *MemberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var member models.Member
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &member, nil
}

// Delete deletes a member by ID
func (r *MemberRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repositories.ErrMemberNotFound
	}
	return nil
}
