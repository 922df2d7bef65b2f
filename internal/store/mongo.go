package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/obada/child-profiles-backend/internal/models"
)

var (
	// ErrNotFound is returned when no profile matches the lookup.
	ErrNotFound = errors.New("child not found")
	// ErrDuplicateEmail is returned when the unique email index rejects an insert.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ChildStore handles child profile CRUD in MongoDB.
type ChildStore struct {
	col *mongo.Collection
}

func NewChildStore(db *mongo.Database) *ChildStore {
	return &ChildStore{col: db.Collection("children")}
}

// EnsureIndexes creates the unique email index. Email uniqueness is enforced
// by the store, not by application-level checks.
func (s *ChildStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo email index: %w", err)
	}
	return nil
}

func (s *ChildStore) Create(ctx context.Context, child *models.Child) (*models.Child, error) {
	child.CreatedAt = time.Now()
	if child.Images == nil {
		child.Images = []string{}
	}
	res, err := s.col.InsertOne(ctx, child)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	child.ID = res.InsertedID.(primitive.ObjectID)
	return child, nil
}

func (s *ChildStore) FindByID(ctx context.Context, id string) (*models.Child, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var child models.Child
	err = s.col.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"password": 0})).Decode(&child)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &child, nil
}

// FindByNameOrEmail returns the first profile matching either supplied
// identity field. Absent fields are left out of the predicate; the caller
// guarantees at least one is present. The password hash is included so the
// verifier can compare against it.
func (s *ChildStore) FindByNameOrEmail(ctx context.Context, name, email string) (*models.Child, error) {
	or := bson.A{}
	if name != "" {
		or = append(or, bson.M{"name": name})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	var child models.Child
	err := s.col.FindOne(ctx, bson.M{"$or": or}).Decode(&child)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &child, nil
}

// UpdateByID applies the given field set and returns the updated document
// without its password hash.
func (s *ChildStore) UpdateByID(ctx context.Context, id string, set bson.M) (*models.Child, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password": 0})

	var child models.Child
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&child)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &child, nil
}

// DeleteByID removes the profile and returns the removed document so the
// caller can clean up its stored images.
func (s *ChildStore) DeleteByID(ctx context.Context, id string) (*models.Child, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var child models.Child
	err = s.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&child)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (s *ChildStore) ListAll(ctx context.Context) ([]models.Child, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"password": 0})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var children []models.Child
	if err := cur.All(ctx, &children); err != nil {
		return nil, err
	}
	return children, nil
}
