package user

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"smilyweb/internal/database"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByResetDigest(ctx context.Context, digest string) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
	// UpsertByEmail is the google-login path: create-or-link keyed by
	// email, return-after semantics. setOnInsert applies only when the
	// document is created.
	UpsertByEmail(ctx context.Context, email string, set, setOnInsert bson.M) (*User, error)
	UpdateFields(ctx context.Context, id bson.ObjectID, set bson.M) error
	SetResetToken(ctx context.Context, id bson.ObjectID, digest string, expiry int64) error
	// ConsumeResetToken stores the new credential hash and clears the
	// digest and expiry in one step, making the token single-use.
	ConsumeResetToken(ctx context.Context, id bson.ObjectID, passwordHash string) error
	AddFollower(ctx context.Context, id, follower bson.ObjectID) error
	RemoveFollower(ctx context.Context, id, follower bson.ObjectID) error
	AddFollowing(ctx context.Context, id, followed bson.ObjectID) error
	RemoveFollowing(ctx context.Context, id, followed bson.ObjectID) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *database.Database) Repository {
	return &mongoRepository{coll: db.Collection("users")}
}

func (r *mongoRepository) Create(ctx context.Context, u *User) (*User, error) {
	now := time.Now()
	u.ID = bson.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Followers == nil {
		u.Followers = []Relation{}
	}
	if u.Following == nil {
		u.Following = []Relation{}
	}

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoRepository) FindByResetDigest(ctx context.Context, digest string) (*User, error) {
	return r.findOne(ctx, bson.M{"forgotPasswordToken": digest})
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoRepository) UpsertByEmail(ctx context.Context, email string, set, setOnInsert bson.M) (*User, error) {
	now := time.Now()
	set["updatedAt"] = now

	insertOnly := bson.M{
		"createdAt": now,
		"role":      RoleUser,
		"followers": []Relation{},
		"following": []Relation{},
	}
	for k, v := range setOnInsert {
		insertOnly[k] = v
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": insertOnly,
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var u User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoRepository) UpdateFields(ctx context.Context, id bson.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoRepository) SetResetToken(ctx context.Context, id bson.ObjectID, digest string, expiry int64) error {
	return r.UpdateFields(ctx, id, bson.M{
		"forgotPasswordToken":  digest,
		"forgotPasswordExpiry": expiry,
	})
}

func (r *mongoRepository) ConsumeResetToken(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	set := bson.M{"password": passwordHash, "updatedAt": time.Now()}
	unset := bson.M{"forgotPasswordToken": "", "forgotPasswordExpiry": ""}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set, "$unset": unset})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoRepository) AddFollower(ctx context.Context, id, follower bson.ObjectID) error {
	return r.push(ctx, id, "followers", follower)
}

func (r *mongoRepository) RemoveFollower(ctx context.Context, id, follower bson.ObjectID) error {
	return r.pull(ctx, id, "followers", follower)
}

func (r *mongoRepository) AddFollowing(ctx context.Context, id, followed bson.ObjectID) error {
	return r.push(ctx, id, "following", followed)
}

func (r *mongoRepository) RemoveFollowing(ctx context.Context, id, followed bson.ObjectID) error {
	return r.pull(ctx, id, "following", followed)
}

func (r *mongoRepository) push(ctx context.Context, id bson.ObjectID, field string, ref bson.ObjectID) error {
	update := bson.M{
		"$push": bson.M{field: Relation{User: ref}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoRepository) pull(ctx context.Context, id bson.ObjectID, field string, ref bson.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{field: bson.M{"user": ref}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
