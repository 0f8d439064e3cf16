package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/config"
	"smilyweb/infrastructure"
	"smilyweb/internal/media"
	"smilyweb/internal/sessions"
)

// Mailer is the mail-relay collaborator as this package needs it.
type Mailer interface {
	SendPasswordResetEmail(to, link string) error
}

// MediaHost is the media collaborator as this package needs it.
type MediaHost interface {
	Upload(ctx context.Context, file string, opts media.UploadOptions) (*media.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

type Handler struct {
	users       *Service
	sessions    sessions.Repository
	mailer      Mailer
	media       MediaHost
	resetSecret string
	frontendURL string
}

func NewHandler(
	cfg *config.Config,
	users *Service,
	sessionRepo sessions.Repository,
	mailer Mailer,
	mediaHost MediaHost,
) *Handler {
	return &Handler{
		users:       users,
		sessions:    sessionRepo,
		mailer:      mailer,
		media:       mediaHost,
		resetSecret: cfg.ForgotPasswordTokenSecret,
		frontendURL: cfg.FrontendURL,
	}
}

// Me returns a fresh copy of the caller's own record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) error {
	u, err := h.callerFromContext(r)
	if err != nil {
		return err
	}
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    u,
	})
	return nil
}

// ForgotPassword starts the reset flow. The caller must be logged out:
// any access or refresh token on the request is refused outright.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	if infrastructure.ExtractAccessToken(r) != "" || infrastructure.ExtractRefreshToken(r) != "" {
		return infrastructure.Forbidden("you are not allowed to this route")
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		return infrastructure.UnprocessableEntity("please provide your email")
	}

	u, err := h.users.Repo().FindByEmail(r.Context(), req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return infrastructure.NotFound("no user found with that email")
	}
	if err != nil {
		return infrastructure.ServerError()
	}
	if u.GoogleLinked {
		return infrastructure.BadRequest("bad request")
	}

	token, err := NewResetToken(h.resetSecret, time.Now())
	if err != nil {
		return infrastructure.ServerError()
	}
	if err := h.users.Repo().SetResetToken(r.Context(), u.ID, token.Digest, token.Expiry); err != nil {
		return infrastructure.ServerError()
	}

	link := fmt.Sprintf("%s/auth/resetpassword/%s", h.frontendURL, token.UserToken)
	if err := h.mailer.SendPasswordResetEmail(u.Email, link); err != nil {
		slog.Error("forgot password: mail delivery failed", "email", u.Email, "error", err)
		return infrastructure.UpstreamError("Oops.. mail cannot be sent")
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password reset link sent to your email",
	})
	return nil
}

// ResetPassword consumes a reset token. The stored digest is cleared on
// success so a replay of the same token fails.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	tokenString := mux.Vars(r)["token"]
	if tokenString == "" {
		return infrastructure.BadRequest("bad request")
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return infrastructure.BadRequest("invalid request body")
	}
	if err := passwordvalidator.Validate(req.Password, 30); err != nil {
		return infrastructure.BadRequest(err.Error())
	}
	if req.Password != req.ConfirmPassword {
		return infrastructure.BadRequest("passwords do not match")
	}

	digest, _, err := ParseResetToken(h.resetSecret, tokenString)
	if err != nil {
		return infrastructure.BadRequest("bad request")
	}

	u, err := h.users.Repo().FindByResetDigest(r.Context(), digest)
	if errors.Is(err, ErrUserNotFound) {
		return infrastructure.BadRequest("bad request")
	}
	if err != nil {
		return infrastructure.ServerError()
	}

	if time.Now().UnixMilli() >= u.ForgotPasswordExpiry {
		return infrastructure.BadRequest("reset link expired")
	}

	if err := h.users.ResetPassword(r.Context(), u.ID, req.Password); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password reset successful",
	})
	return nil
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return infrastructure.Unauthenticated()
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return infrastructure.BadRequest("invalid request body")
	}

	err = h.users.UpdatePassword(r.Context(), id, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, ErrPasswordMismatch) || errors.Is(err, ErrUserNotFound) {
		return infrastructure.NotFound("can't update password")
	}
	if err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password updated",
	})
	return nil
}

func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) error {
	u, err := h.callerFromContext(r)
	if err != nil {
		return err
	}

	var req UpdateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return infrastructure.BadRequest("invalid request body")
	}
	if req.Name == "" && req.Email == "" {
		return infrastructure.BadRequest("nothing to update")
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Email != "" {
		set["email"] = req.Email
	}
	if err := h.users.Repo().UpdateFields(r.Context(), u.ID, set); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "user updated successfully",
	})
	return nil
}

// UpdateAvatar replaces the caller's avatar on the media host: the old
// asset is destroyed first, then the new file uploaded and its handle
// persisted.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	u, err := h.callerFromContext(r)
	if err != nil {
		return err
	}

	file, cleanup, err := avatarFromRequest(r)
	if err != nil {
		return err
	}
	defer cleanup()

	if u.Avatar.PublicID != "" {
		if err := h.media.Destroy(r.Context(), u.Avatar.PublicID); err != nil {
			slog.Error("avatar update: destroy failed", "public_id", u.Avatar.PublicID, "error", err)
			return infrastructure.ServerError()
		}
	}

	asset, err := h.media.Upload(r.Context(), file, media.UploadOptions{
		Folder: fmt.Sprintf("/socialmedia/%s/avatar", u.ID.Hex()),
		Width:  200,
		Crop:   "scale",
	})
	if err != nil {
		slog.Error("avatar update: upload failed", "user", u.ID.Hex(), "error", err)
		return infrastructure.ServerError()
	}

	set := bson.M{"avatar": Avatar{PublicID: asset.PublicID, SecureURL: asset.SecureURL}}
	if err := h.users.Repo().UpdateFields(r.Context(), u.ID, set); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "profile updated successfully",
	})
	return nil
}

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.users.Repo().FindAll(r.Context())
	if err != nil {
		return infrastructure.ServerError()
	}
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
	return nil
}

func (h *Handler) GetSingleUser(w http.ResponseWriter, r *http.Request) error {
	id, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return infrastructure.BadRequest("user id doesn't exist on the request params")
	}

	u, err := h.users.Repo().FindByID(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		return infrastructure.NotFound("user not found")
	}
	if err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    u,
	})
	return nil
}

// DeleteUser is admin-only. Deleting a user cascade-invalidates every
// session they own, which kills their refresh path immediately.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}

	rawID := mux.Vars(r)["id"]
	if claims.UserID == rawID {
		return infrastructure.NotFound("you can't delete yourself")
	}
	id, err := bson.ObjectIDFromHex(rawID)
	if err != nil {
		return infrastructure.BadRequest("user id doesn't exist on the request params")
	}

	if err := h.users.Repo().Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return infrastructure.NotFound("user not found")
		}
		return infrastructure.ServerError()
	}
	if err := h.sessions.DeleteByUser(r.Context(), id); err != nil {
		slog.Error("delete user: session cascade failed", "user", rawID, "error", err)
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "user deleted",
	})
	return nil
}

func (h *Handler) FollowUser(w http.ResponseWriter, r *http.Request) error {
	callerID, target, err := h.followPair(r)
	if err != nil {
		return err
	}

	if target.IsFollowedBy(callerID) {
		infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "already following",
		})
		return nil
	}

	if err := h.users.Repo().AddFollower(r.Context(), target.ID, callerID); err != nil {
		return infrastructure.ServerError()
	}
	if err := h.users.Repo().AddFollowing(r.Context(), callerID, target.ID); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("following %s", target.Name),
	})
	return nil
}

func (h *Handler) UnfollowUser(w http.ResponseWriter, r *http.Request) error {
	callerID, target, err := h.followPair(r)
	if err != nil {
		return err
	}

	if !target.IsFollowedBy(callerID) {
		infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "you are not following the user",
		})
		return nil
	}

	if err := h.users.Repo().RemoveFollower(r.Context(), target.ID, callerID); err != nil {
		return infrastructure.ServerError()
	}
	if err := h.users.Repo().RemoveFollowing(r.Context(), callerID, target.ID); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("now you are not following %s", target.Name),
	})
	return nil
}

func (h *Handler) followPair(r *http.Request) (bson.ObjectID, *User, error) {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return bson.ObjectID{}, nil, infrastructure.Unauthenticated()
	}
	callerID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.Unauthenticated()
	}

	targetID, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.NotFound("user not found")
	}
	target, err := h.users.Repo().FindByID(r.Context(), targetID)
	if errors.Is(err, ErrUserNotFound) {
		return bson.ObjectID{}, nil, infrastructure.NotFound("user not found")
	}
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.ServerError()
	}
	return callerID, target, nil
}

func (h *Handler) callerFromContext(r *http.Request) (*User, error) {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return nil, infrastructure.Unauthenticated()
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, infrastructure.Unauthenticated()
	}

	u, err := h.users.Repo().FindByID(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, infrastructure.NotFound("user not found")
	}
	if err != nil {
		return nil, infrastructure.ServerError()
	}
	return u, nil
}

// avatarFromRequest accepts either a multipart upload (field "avatar",
// spooled to a temp file) or a JSON body with an inline payload. The
// returned cleanup removes any temp file.
func avatarFromRequest(r *http.Request) (string, func(), error) {
	noop := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		src, _, err := r.FormFile("avatar")
		if err != nil {
			return "", noop, infrastructure.UnprocessableEntity("please select a photo to update profile pic")
		}
		defer src.Close()

		tmp, err := os.CreateTemp("", "avatar-*")
		if err != nil {
			return "", noop, infrastructure.ServerError()
		}
		if _, err := io.Copy(tmp, src); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", noop, infrastructure.ServerError()
		}
		tmp.Close()
		return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
	}

	var req UpdateAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Avatar == "" {
		return "", noop, infrastructure.UnprocessableEntity("please select a photo to update profile pic")
	}
	return req.Avatar, noop, nil
}
