package posts

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/internal/user"
)

// Image references the asset the media host stores for a post.
type Image struct {
	PublicID  string `bson:"public_id" json:"public_id"`
	SecureURL string `bson:"secure_url" json:"secure_url"`
}

type Like struct {
	User bson.ObjectID `bson:"user" json:"user"`
}

type Comment struct {
	User    bson.ObjectID `bson:"user" json:"user"`
	Name    string        `bson:"name" json:"name"`
	Comment string        `bson:"comment" json:"comment"`
	Time    time.Time     `bson:"time" json:"time"`
}

type Post struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Caption     string        `bson:"caption" json:"caption"`
	Image       Image         `bson:"image" json:"image"`
	PostCreator bson.ObjectID `bson:"postCreator" json:"postCreator"`
	Likes       []Like        `bson:"likes" json:"likes"`
	Shares      int           `bson:"shares" json:"shares"`
	Comments    []Comment     `bson:"comments" json:"comments"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Creator is the slice of the owning user joined into feed responses.
type Creator struct {
	ID     bson.ObjectID `bson:"_id" json:"_id"`
	Name   string        `bson:"name" json:"name"`
	Email  string        `bson:"email" json:"email"`
	Avatar user.Avatar   `bson:"avatar" json:"avatar"`
}

// PostView is a post with its creator fields joined in.
type PostView struct {
	ID          bson.ObjectID `bson:"_id" json:"_id"`
	Caption     string        `bson:"caption" json:"caption"`
	Image       Image         `bson:"image" json:"image"`
	PostCreator Creator       `bson:"postCreator" json:"postCreator"`
	Likes       []Like        `bson:"likes" json:"likes"`
	Shares      int           `bson:"shares" json:"shares"`
	Comments    []Comment     `bson:"comments" json:"comments"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// IsLikedBy reports whether id already appears in the like set.
func (p *Post) IsLikedBy(id bson.ObjectID) bool {
	for _, l := range p.Likes {
		if l.User == id {
			return true
		}
	}
	return false
}
