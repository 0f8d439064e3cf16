package sessions

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session binds a user to a client fingerprint. Its id is embedded in
// every token minted against it, so deleting the row revokes the refresh
// path for those tokens.
type Session struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      bson.ObjectID `bson:"user" json:"user"`
	UserAgent string        `bson:"userAgent" json:"userAgent"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}
