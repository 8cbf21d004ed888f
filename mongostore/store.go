package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection users are stored in.
const DefaultCollection = "users"

var uniqueIndexes = []struct {
	field string
	name  string
}{
	{"username", "username_unique"},
	{"email", "email_unique"},
	{"phoneNumber", "phoneNumber_unique"},
}

// Store implements goAccount.UserStore over one collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New returns a Store over the named collection of db. Call EnsureIndexes
// once before serving traffic.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		coll: db.Collection(collection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the unique indexes and the compound timestamp index.
// It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := make([]mongo.IndexModel, 0, len(uniqueIndexes)+1)
	for _, ix := range uniqueIndexes {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: ix.field, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(ix.name),
		})
	}
	models = append(models, mongo.IndexModel{
		Keys: bson.D{
			{Key: "createdAt", Value: 1},
			{Key: "updatedAt", Value: 1},
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "phoneNumber", Value: 1},
		},
		Options: options.Index().SetName("timestamps_lookup"),
	})

	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// FindByID returns the user with the given hex ObjectID.
func (s *Store) FindByID(ctx context.Context, id string) (goAccount.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return goAccount.User{}, goAccount.ErrUserNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindOne returns the user matching the single field set in f.
func (s *Store) FindOne(ctx context.Context, f goAccount.UserFilter) (goAccount.User, error) {
	filter, ok := filterDocument(f)
	if !ok {
		return goAccount.User{}, goAccount.ErrUserNotFound
	}
	return s.findOne(ctx, filter)
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (goAccount.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return goAccount.User{}, goAccount.ErrUserNotFound
		}
		return goAccount.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

// Create inserts u with a new ObjectID and fresh timestamps.
func (s *Store) Create(ctx context.Context, u goAccount.User) (goAccount.User, error) {
	now := s.now()
	doc := toDocument(u)
	doc.ID = bson.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if conflict := conflictFrom(err); conflict != nil {
			return goAccount.User{}, conflict
		}
		return goAccount.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toUser(), nil
}

// Update applies p and returns the document as it is after the write.
func (s *Store) Update(ctx context.Context, id string, p goAccount.UserPatch) (goAccount.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return goAccount.User{}, goAccount.ErrUserNotFound
	}

	update, ok := updateDocument(p, s.now())
	if !ok {
		return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc)
	switch {
	case err == nil:
		return doc.toUser(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return goAccount.User{}, goAccount.ErrUserNotFound
	default:
		if conflict := conflictFrom(err); conflict != nil {
			return goAccount.User{}, conflict
		}
		return goAccount.User{}, fmt.Errorf("update user: %w", err)
	}
}

// conflictFrom maps a duplicate-key error to a ConflictError naming the
// violated unique fields. It returns nil for any other error.
func conflictFrom(err error) *goAccount.ConflictError {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}

	msg := err.Error()
	var fields []string
	for _, ix := range uniqueIndexes {
		if strings.Contains(msg, "index: "+ix.name+" ") || strings.Contains(msg, "index: "+ix.name+"\"") {
			fields = append(fields, ix.field)
		}
	}
	return &goAccount.ConflictError{Fields: fields}
}
