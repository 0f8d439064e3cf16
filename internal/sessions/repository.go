package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"smilyweb/internal/database"
)

var ErrSessionNotFound = errors.New("session not found")

type Repository interface {
	Create(ctx context.Context, userID bson.ObjectID, userAgent string) (*Session, error)
	// CreateOrUpdate upserts by (user, userAgent) so repeated logins from
	// the same client reuse one row instead of accumulating sessions.
	CreateOrUpdate(ctx context.Context, userID bson.ObjectID, userAgent string) (*Session, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*Session, error)
	DeleteByID(ctx context.Context, id bson.ObjectID) error
	DeleteByUser(ctx context.Context, userID bson.ObjectID) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *database.Database) Repository {
	return &mongoRepository{coll: db.Collection("sessions")}
}

func (r *mongoRepository) Create(ctx context.Context, userID bson.ObjectID, userAgent string) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        bson.NewObjectID(),
		User:      userID,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *mongoRepository) CreateOrUpdate(ctx context.Context, userID bson.ObjectID, userAgent string) (*Session, error) {
	now := time.Now()
	filter := bson.M{"user": userID, "userAgent": userAgent}
	update := bson.M{
		"$set":         bson.M{"user": userID, "userAgent": userAgent, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var session Session
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id bson.ObjectID) (*Session, error) {
	var session Session
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *mongoRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *mongoRepository) DeleteByUser(ctx context.Context, userID bson.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"user": userID})
	return err
}
