package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/config"
	"smilyweb/internal/sessions"
	"smilyweb/internal/user"
)

func generateKeyPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	return base64.StdEncoding.EncodeToString(privatePEM),
		base64.StdEncoding.EncodeToString(publicPEM)
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	accessPriv, accessPub := generateKeyPair(t)
	refreshPriv, refreshPub := generateKeyPair(t)
	return &config.Config{
		FrontendURL:            "http://front.example.com",
		AccessTokenPrivateKey:  accessPriv,
		AccessTokenPublicKey:   accessPub,
		RefreshTokenPrivateKey: refreshPriv,
		RefreshTokenPublicKey:  refreshPub,
		AccessTokenTTL:         time.Hour,
		RefreshTokenTTL:        24 * time.Hour,
	}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[bson.ObjectID]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, user.ErrEmailTaken
		}
	}
	u.ID = bson.NewObjectID()
	u.CreatedAt = time.Now()
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	clone := *u
	r.users[u.ID] = &clone
	return u, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id bson.ObjectID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *fakeUserRepo) FindByResetDigest(_ context.Context, digest string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ForgotPasswordToken != "" && u.ForgotPasswordToken == digest {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *fakeUserRepo) FindAll(_ context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}
	return all, nil
}

func (r *fakeUserRepo) UpsertByEmail(_ context.Context, email string, set, setOnInsert bson.M) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			applyUserSet(u, set)
			clone := *u
			return &clone, nil
		}
	}
	u := &user.User{ID: bson.NewObjectID(), Email: email, Role: user.RoleUser, CreatedAt: time.Now()}
	applyUserSet(u, set)
	applyUserSet(u, setOnInsert)
	r.users[u.ID] = u
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, id bson.ObjectID, set bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	applyUserSet(u, set)
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id bson.ObjectID, digest string, expiry int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.ForgotPasswordToken = digest
	u.ForgotPasswordExpiry = expiry
	return nil
}

func (r *fakeUserRepo) ConsumeResetToken(_ context.Context, id bson.ObjectID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Password = passwordHash
	u.ForgotPasswordToken = ""
	u.ForgotPasswordExpiry = 0
	return nil
}

func (r *fakeUserRepo) AddFollower(context.Context, bson.ObjectID, bson.ObjectID) error {
	return nil
}

func (r *fakeUserRepo) RemoveFollower(context.Context, bson.ObjectID, bson.ObjectID) error {
	return nil
}

func (r *fakeUserRepo) AddFollowing(context.Context, bson.ObjectID, bson.ObjectID) error {
	return nil
}

func (r *fakeUserRepo) RemoveFollowing(context.Context, bson.ObjectID, bson.ObjectID) error {
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func applyUserSet(u *user.User, set bson.M) {
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
		}
	}
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[bson.ObjectID]*sessions.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[bson.ObjectID]*sessions.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, userID bson.ObjectID, userAgent string) (*sessions.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &sessions.Session{ID: bson.NewObjectID(), User: userID, UserAgent: userAgent, CreatedAt: time.Now()}
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeSessionRepo) CreateOrUpdate(ctx context.Context, userID bson.ObjectID, userAgent string) (*sessions.Session, error) {
	r.mu.Lock()
	for _, s := range r.sessions {
		if s.User == userID && s.UserAgent == userAgent {
			s.UpdatedAt = time.Now()
			r.mu.Unlock()
			return s, nil
		}
	}
	r.mu.Unlock()
	return r.Create(ctx, userID, userAgent)
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id bson.ObjectID) (*sessions.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) DeleteByID(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return sessions.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.User == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
