package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func strPtr(s string) *string { return &s }

func lookup(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestDocumentRoundTripKeepsID(t *testing.T) {
	id := bson.NewObjectID()
	set := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	u := goAccount.User{
		ID:            id.Hex(),
		Username:      "alice",
		Email:         "alice@example.com",
		PasswordHash:  "$2a$10$digest",
		PasswordSetAt: set,
		Role:          goAccount.RoleAdmin,
	}

	doc := toDocument(u)
	if doc.ID != id {
		t.Fatalf("expected id %s, got %s", id.Hex(), doc.ID.Hex())
	}
	if doc.PasswordSetAt == nil || !doc.PasswordSetAt.Equal(set) {
		t.Fatalf("expected passwordSetDate, got %v", doc.PasswordSetAt)
	}

	back := doc.toUser()
	if back.ID != u.ID || back.PasswordHash != u.PasswordHash || back.Role != goAccount.RoleAdmin {
		t.Fatalf("round trip mismatch: %+v", back)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := bson.Raw(raw).LookupErr("refreshToken"); err == nil {
		t.Fatal("empty refresh token must be omitted")
	}
}

func TestFilterDocument(t *testing.T) {
	if _, ok := filterDocument(goAccount.UserFilter{}); ok {
		t.Fatal("empty filter must be rejected")
	}
	f, ok := filterDocument(goAccount.UserFilter{Email: "a@example.com"})
	if !ok || len(f) != 1 || f[0].Key != "email" {
		t.Fatalf("unexpected filter %v", f)
	}
}

func TestUpdateDocumentSetsAndUnsets(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	verified := true

	update, ok := updateDocument(goAccount.UserPatch{
		Name:         strPtr("Alice"),
		IsVerified:   &verified,
		RefreshToken: strPtr(""),
	}, now)
	if !ok {
		t.Fatal("expected an update")
	}

	rawSet, _ := lookup(update, "$set")
	rawUnset, _ := lookup(update, "$unset")
	set, _ := rawSet.(bson.D)
	unset, _ := rawUnset.(bson.D)

	if v, _ := lookup(set, "name"); v != "Alice" {
		t.Fatalf("unexpected $set %v", set)
	}
	if v, _ := lookup(set, "isVerified"); v != true {
		t.Fatalf("unexpected $set %v", set)
	}
	if v, _ := lookup(set, "updatedAt"); v != now {
		t.Fatalf("unexpected $set %v", set)
	}
	if _, ok := lookup(unset, "refreshToken"); !ok || len(unset) != 1 {
		t.Fatalf("unexpected $unset %v", unset)
	}

	if _, ok := updateDocument(goAccount.UserPatch{}, now); ok {
		t.Fatal("empty patch must produce no update")
	}
}

func TestConflictFromDuplicateKey(t *testing.T) {
	err := mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{
			Code:    11000,
			Message: `E11000 duplicate key error collection: app.users index: email_unique dup key: { email: "a@example.com" }`,
		}},
	}

	conflict := conflictFrom(err)
	if conflict == nil {
		t.Fatal("expected conflict")
	}
	if len(conflict.Fields) != 1 || conflict.Fields[0] != "email" {
		t.Fatalf("expected [email], got %v", conflict.Fields)
	}
	if !errors.Is(conflict, goAccount.ErrConflict) {
		t.Fatal("conflict must unwrap to ErrConflict")
	}

	if conflictFrom(errors.New("socket closed")) != nil {
		t.Fatal("non duplicate errors are not conflicts")
	}
}

func TestInvalidIDIsNotFound(t *testing.T) {
	s := &Store{now: time.Now}
	if _, err := s.FindByID(context.Background(), "not-hex"); !errors.Is(err, goAccount.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.Update(context.Background(), "not-hex", goAccount.UserPatch{Name: strPtr("x")}); !errors.Is(err, goAccount.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// TestStoreAgainstMongo runs only when MONGODB_TEST_URI points at a server.
func TestStoreAgainstMongo(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("goaccount_test_" + bson.NewObjectID().Hex())
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	s := New(db, "")
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	created, err := s.Create(ctx, goAccount.User{
		Username:     "alice",
		Name:         "Alice",
		PhoneNumber:  "9876543210",
		Email:        "alice@example.com",
		PasswordHash: "digest",
		Role:         goAccount.RoleUser,
		RefreshToken: "r1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = s.Create(ctx, goAccount.User{
		Username:    "alice",
		PhoneNumber: "9876543211",
		Email:       "other@example.com",
	})
	fields, ok := goAccount.IsConflict(err)
	if !ok || len(fields) != 1 || fields[0] != "username" {
		t.Fatalf("expected username conflict, got %v %v", fields, err)
	}

	updated, err := s.Update(ctx, created.ID, goAccount.UserPatch{RefreshToken: strPtr("")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.RefreshToken != "" {
		t.Fatalf("expected refresh token cleared, got %q", updated.RefreshToken)
	}

	byEmail, err := s.FindOne(ctx, goAccount.UserFilter{Email: "alice@example.com"})
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("FindOne: %+v %v", byEmail, err)
	}

	if _, err := s.FindByID(ctx, bson.NewObjectID().Hex()); !errors.Is(err, goAccount.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
