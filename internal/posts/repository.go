package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"smilyweb/internal/database"
)

var ErrPostNotFound = errors.New("post not found")

type Repository interface {
	Create(ctx context.Context, post *Post) (*Post, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*Post, error)
	FindViewByID(ctx context.Context, id bson.ObjectID) (*PostView, error)
	FindAllViews(ctx context.Context) ([]PostView, error)
	FindViewsByCreator(ctx context.Context, creator bson.ObjectID) ([]PostView, error)
	AddLike(ctx context.Context, id, userID bson.ObjectID) error
	RemoveLike(ctx context.Context, id, userID bson.ObjectID) error
	IncrementShares(ctx context.Context, id bson.ObjectID) error
	AddComment(ctx context.Context, id bson.ObjectID, comment Comment) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

type mongoRepository struct {
	posts *mongo.Collection
}

func NewMongoRepository(db *database.Database) Repository {
	return &mongoRepository{posts: db.Collection("posts")}
}

func (r *mongoRepository) Create(ctx context.Context, post *Post) (*Post, error) {
	now := time.Now().UTC()
	post.ID = bson.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []Like{}
	}
	if post.Comments == nil {
		post.Comments = []Comment{}
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return nil, fmt.Errorf("inserting post: %w", err)
	}
	return post, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id bson.ObjectID) (*Post, error) {
	var post Post
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding post: %w", err)
	}
	return &post, nil
}

// creatorPipeline joins the owning user document into each matched post.
func creatorPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.M{"createdAt": -1}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "postCreator",
			"foreignField": "_id",
			"as":           "postCreator",
		}}},
		bson.D{{Key: "$unwind", Value: "$postCreator"}},
	}
}

func (r *mongoRepository) findViews(ctx context.Context, match bson.M) ([]PostView, error) {
	cursor, err := r.posts.Aggregate(ctx, creatorPipeline(match))
	if err != nil {
		return nil, fmt.Errorf("aggregating posts: %w", err)
	}
	defer cursor.Close(ctx)

	views := []PostView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("decoding posts: %w", err)
	}
	return views, nil
}

func (r *mongoRepository) FindViewByID(ctx context.Context, id bson.ObjectID) (*PostView, error) {
	views, err := r.findViews(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrPostNotFound
	}
	return &views[0], nil
}

func (r *mongoRepository) FindAllViews(ctx context.Context) ([]PostView, error) {
	return r.findViews(ctx, bson.M{})
}

func (r *mongoRepository) FindViewsByCreator(ctx context.Context, creator bson.ObjectID) ([]PostView, error) {
	return r.findViews(ctx, bson.M{"postCreator": creator})
}

func (r *mongoRepository) AddLike(ctx context.Context, id, userID bson.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{"likes": Like{User: userID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoRepository) RemoveLike(ctx context.Context, id, userID bson.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"likes": bson.M{"user": userID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoRepository) IncrementShares(ctx context.Context, id bson.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$inc": bson.M{"shares": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoRepository) AddComment(ctx context.Context, id bson.ObjectID, comment Comment) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoRepository) updateByID(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := r.posts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}
