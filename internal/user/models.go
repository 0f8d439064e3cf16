package user

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/pkg/jwt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Avatar references an asset owned by the external media host.
type Avatar struct {
	PublicID  string `bson:"public_id" json:"public_id"`
	SecureURL string `bson:"secure_url" json:"secure_url"`
}

// Relation is one edge of the follow graph.
type Relation struct {
	User bson.ObjectID `bson:"user" json:"user"`
}

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	Password     string        `bson:"password" json:"-"`
	Avatar       Avatar        `bson:"avatar" json:"avatar"`
	Role         string        `bson:"role" json:"role"`
	GoogleLinked bool          `bson:"isLoggedInWithGoogle" json:"isLoggedInWithGoogle"`
	Followers    []Relation    `bson:"followers" json:"followers"`
	Following    []Relation    `bson:"following" json:"following"`

	// Reset-token fields hold the HMAC digest and expiry, never the token
	// handed to the user.
	ForgotPasswordToken  string `bson:"forgotPasswordToken,omitempty" json:"-"`
	ForgotPasswordExpiry int64  `bson:"forgotPasswordExpiry,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"-"`
}

// Claims returns the public fields embedded in tokens.
func (u *User) Claims() jwt.UserClaims {
	return jwt.UserClaims{
		UserID:       u.ID.Hex(),
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Avatar:       u.Avatar.SecureURL,
		GoogleLinked: u.GoogleLinked,
	}
}

// IsFollowedBy reports whether id already appears in the follower set.
func (u *User) IsFollowedBy(id bson.ObjectID) bool {
	for _, f := range u.Followers {
		if f.User == id {
			return true
		}
	}
	return false
}
