package user

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// fakeRepository is the in-memory stand-in used across the package tests.
type fakeRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*User
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[bson.ObjectID]*User)}
}

func (r *fakeRepository) Create(_ context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, ErrEmailTaken
		}
	}
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
	clone := *u
	r.users[u.ID] = &clone
	return u, nil
}

func (r *fakeRepository) FindByID(_ context.Context, id bson.ObjectID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepository) FindByResetDigest(_ context.Context, digest string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ForgotPasswordToken != "" && u.ForgotPasswordToken == digest {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepository) FindAll(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}
	return all, nil
}

func (r *fakeRepository) UpsertByEmail(_ context.Context, email string, set, setOnInsert bson.M) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			applySet(u, set)
			clone := *u
			return &clone, nil
		}
	}
	u := &User{
		ID:        bson.NewObjectID(),
		Email:     email,
		Role:      RoleUser,
		Followers: []Relation{},
		Following: []Relation{},
		CreatedAt: time.Now(),
	}
	applySet(u, set)
	applySet(u, setOnInsert)
	r.users[u.ID] = u
	clone := *u
	return &clone, nil
}

func (r *fakeRepository) UpdateFields(_ context.Context, id bson.ObjectID, set bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	applySet(u, set)
	return nil
}

func (r *fakeRepository) SetResetToken(_ context.Context, id bson.ObjectID, digest string, expiry int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ForgotPasswordToken = digest
	u.ForgotPasswordExpiry = expiry
	return nil
}

func (r *fakeRepository) ConsumeResetToken(_ context.Context, id bson.ObjectID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = passwordHash
	u.ForgotPasswordToken = ""
	u.ForgotPasswordExpiry = 0
	return nil
}

func (r *fakeRepository) AddFollower(_ context.Context, id, follower bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Followers = append(u.Followers, Relation{User: follower})
	return nil
}

func (r *fakeRepository) RemoveFollower(_ context.Context, id, follower bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Followers = removeRelation(u.Followers, follower)
	return nil
}

func (r *fakeRepository) AddFollowing(_ context.Context, id, followed bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Following = append(u.Following, Relation{User: followed})
	return nil
}

func (r *fakeRepository) RemoveFollowing(_ context.Context, id, followed bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Following = removeRelation(u.Following, followed)
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func applySet(u *User, set bson.M) {
	for k, v := range set {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "password":
			u.Password = v.(string)
		case "isLoggedInWithGoogle":
			u.GoogleLinked = v.(bool)
		case "avatar":
			u.Avatar = v.(Avatar)
		}
	}
	u.UpdatedAt = time.Now()
}

func removeRelation(rels []Relation, id bson.ObjectID) []Relation {
	out := rels[:0]
	for _, rel := range rels {
		if rel.User != id {
			out = append(out, rel)
		}
	}
	return out
}
