package mongostore

import (
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userDocument struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	Username      string        `bson:"username"`
	Name          string        `bson:"name"`
	PhoneNumber   string        `bson:"phoneNumber"`
	Email         string        `bson:"email"`
	Password      string        `bson:"password"`
	PasswordSetAt *time.Time    `bson:"passwordSetDate,omitempty"`
	IsVerified    bool          `bson:"isVerified"`
	Avatar        string        `bson:"avatar,omitempty"`
	Role          string        `bson:"role"`
	RefreshToken  string        `bson:"refreshToken,omitempty"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func toDocument(u goAccount.User) userDocument {
	doc := userDocument{
		Username:     u.Username,
		Name:         u.Name,
		PhoneNumber:  u.PhoneNumber,
		Email:        u.Email,
		Password:     u.PasswordHash,
		IsVerified:   u.IsVerified,
		Avatar:       u.Avatar,
		Role:         string(u.Role),
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if !u.PasswordSetAt.IsZero() {
		t := u.PasswordSetAt.UTC()
		doc.PasswordSetAt = &t
	}
	if id, err := bson.ObjectIDFromHex(u.ID); err == nil {
		doc.ID = id
	}
	return doc
}

func (d userDocument) toUser() goAccount.User {
	u := goAccount.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Name:         d.Name,
		PhoneNumber:  d.PhoneNumber,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsVerified:   d.IsVerified,
		Avatar:       d.Avatar,
		Role:         goAccount.Role(d.Role),
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.PasswordSetAt != nil {
		u.PasswordSetAt = d.PasswordSetAt.UTC()
	}
	return u
}

func filterDocument(f goAccount.UserFilter) (bson.D, bool) {
	switch {
	case f.Username != "":
		return bson.D{{Key: "username", Value: f.Username}}, true
	case f.Email != "":
		return bson.D{{Key: "email", Value: f.Email}}, true
	case f.PhoneNumber != "":
		return bson.D{{Key: "phoneNumber", Value: f.PhoneNumber}}, true
	default:
		return nil, false
	}
}

// updateDocument translates p into $set / $unset. An empty RefreshToken or
// Avatar removes the field. ok is false when p changes nothing.
func updateDocument(p goAccount.UserPatch, now time.Time) (bson.D, bool) {
	set := bson.D{}
	unset := bson.D{}

	str := func(key string, v *string) {
		if v == nil {
			return
		}
		set = append(set, bson.E{Key: key, Value: *v})
	}
	optional := func(key string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			unset = append(unset, bson.E{Key: key, Value: ""})
			return
		}
		set = append(set, bson.E{Key: key, Value: *v})
	}

	str("username", p.Username)
	str("name", p.Name)
	str("phoneNumber", p.PhoneNumber)
	str("email", p.Email)
	str("password", p.PasswordHash)
	optional("avatar", p.Avatar)
	optional("refreshToken", p.RefreshToken)
	if p.PasswordSetAt != nil {
		set = append(set, bson.E{Key: "passwordSetDate", Value: p.PasswordSetAt.UTC()})
	}
	if p.IsVerified != nil {
		set = append(set, bson.E{Key: "isVerified", Value: *p.IsVerified})
	}

	if len(set) == 0 && len(unset) == 0 {
		return nil, false
	}

	set = append(set, bson.E{Key: "updatedAt", Value: now})
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update, true
}
