package posts

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
	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/infrastructure"
	"smilyweb/internal/broadcast"
	"smilyweb/internal/media"
)

// MediaHost is the media collaborator as this package needs it.
type MediaHost interface {
	Upload(ctx context.Context, file string, opts media.UploadOptions) (*media.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

type CreatePostRequest struct {
	Caption string `json:"caption"`
	Image   string `json:"image"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type Handler struct {
	posts Repository
	media MediaHost
	hub   *broadcast.Hub
}

func NewHandler(posts Repository, mediaHost MediaHost, hub *broadcast.Hub) *Handler {
	return &Handler{posts: posts, media: mediaHost, hub: hub}
}

// CreatePost uploads the image to the media host, persists the post and
// announces it on the event bus.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}
	creatorID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return infrastructure.Unauthenticated()
	}

	caption, file, cleanup, err := postFromRequest(r)
	if err != nil {
		return err
	}
	defer cleanup()

	asset, err := h.media.Upload(r.Context(), file, media.UploadOptions{
		Folder: fmt.Sprintf("/socialmedia/%s/posts", claims.UserID),
	})
	if err != nil {
		slog.Error("create post: upload failed", "user", claims.UserID, "error", err)
		return infrastructure.ServerError()
	}

	post, err := h.posts.Create(r.Context(), &Post{
		Caption:     caption,
		Image:       Image{PublicID: asset.PublicID, SecureURL: asset.SecureURL},
		PostCreator: creatorID,
	})
	if err != nil {
		return infrastructure.ServerError()
	}

	h.hub.Publish(broadcast.EventPostNew, post)

	infrastructure.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "post created",
		"post":    post,
	})
	return nil
}

func (h *Handler) GetAllPosts(w http.ResponseWriter, r *http.Request) error {
	views, err := h.posts.FindAllViews(r.Context())
	if err != nil {
		return infrastructure.ServerError()
	}
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"posts":   views,
	})
	return nil
}

func (h *Handler) GetSinglePost(w http.ResponseWriter, r *http.Request) error {
	id, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return infrastructure.BadRequest("post id doesn't exist on the request params")
	}

	view, err := h.posts.FindViewByID(r.Context(), id)
	if errors.Is(err, ErrPostNotFound) {
		return infrastructure.NotFound("currently don't have any post to see")
	}
	if err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"post":    view,
	})
	return nil
}

// GetUserAllPosts lists every post a given user created.
func (h *Handler) GetUserAllPosts(w http.ResponseWriter, r *http.Request) error {
	creatorID, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return infrastructure.BadRequest("user id doesn't exist on the request params")
	}

	views, err := h.posts.FindViewsByCreator(r.Context(), creatorID)
	if err != nil {
		return infrastructure.ServerError()
	}
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"posts":   views,
	})
	return nil
}

// DeletePost removes a post. Only its creator may do so; the hosted image
// is destroyed alongside the record.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}

	id, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return infrastructure.BadRequest("post id doesn't exist on the request params")
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if errors.Is(err, ErrPostNotFound) {
		return infrastructure.NotFound("post not found")
	}
	if err != nil {
		return infrastructure.ServerError()
	}
	if post.PostCreator.Hex() != claims.UserID {
		return infrastructure.Forbidden("you are not allowed to this route")
	}

	if post.Image.PublicID != "" {
		if err := h.media.Destroy(r.Context(), post.Image.PublicID); err != nil {
			slog.Error("delete post: destroy failed", "public_id", post.Image.PublicID, "error", err)
		}
	}
	if err := h.posts.Delete(r.Context(), id); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "post deleted",
	})
	return nil
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) error {
	callerID, post, err := h.postPair(r)
	if err != nil {
		return err
	}

	if post.IsLikedBy(callerID) {
		infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "already liked",
		})
		return nil
	}

	if err := h.posts.AddLike(r.Context(), post.ID, callerID); err != nil {
		return infrastructure.ServerError()
	}
	return h.respondUpdated(w, r, post.ID, "post liked")
}

func (h *Handler) DislikePost(w http.ResponseWriter, r *http.Request) error {
	callerID, post, err := h.postPair(r)
	if err != nil {
		return err
	}

	if !post.IsLikedBy(callerID) {
		return infrastructure.BadRequest("cannot perform this task")
	}

	if err := h.posts.RemoveLike(r.Context(), post.ID, callerID); err != nil {
		return infrastructure.ServerError()
	}
	return h.respondUpdated(w, r, post.ID, "like removed")
}

// SharePost bumps the share counter. The response text doubles as the
// frontend toast.
func (h *Handler) SharePost(w http.ResponseWriter, r *http.Request) error {
	_, post, err := h.postPair(r)
	if err != nil {
		return err
	}

	if err := h.posts.IncrementShares(r.Context(), post.ID); err != nil {
		return infrastructure.ServerError()
	}

	h.hub.Publish(broadcast.EventPostShared, map[string]any{"_id": post.ID})

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Link copied to clipboard.. share the link to anyone",
	})
	return nil
}

func (h *Handler) MakeComment(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}
	callerID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return infrastructure.Unauthenticated()
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Comment) == "" {
		return infrastructure.BadRequest("enter some text to make a comment")
	}

	id, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return infrastructure.BadRequest("post id doesn't exist on the request params")
	}
	if _, err := h.posts.FindByID(r.Context(), id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return infrastructure.NotFound("post not found")
		}
		return infrastructure.ServerError()
	}

	comment := Comment{
		User:    callerID,
		Name:    claims.Name,
		Comment: req.Comment,
		Time:    time.Now().UTC(),
	}
	if err := h.posts.AddComment(r.Context(), id, comment); err != nil {
		return infrastructure.ServerError()
	}
	return h.respondUpdated(w, r, id, "comment added")
}

// respondUpdated re-reads the joined view, announces it and writes the
// standard mutation response.
func (h *Handler) respondUpdated(w http.ResponseWriter, r *http.Request, id bson.ObjectID, msg string) error {
	view, err := h.posts.FindViewByID(r.Context(), id)
	if err != nil {
		return infrastructure.ServerError()
	}

	h.hub.Publish(broadcast.EventPostUpdate, view)

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     msg,
		"updatedPost": view,
	})
	return nil
}

func (h *Handler) postPair(r *http.Request) (bson.ObjectID, *Post, error) {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return bson.ObjectID{}, nil, infrastructure.Unauthenticated()
	}
	callerID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.Unauthenticated()
	}

	id, err := bson.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.BadRequest("post id doesn't exist on the request params")
	}
	post, err := h.posts.FindByID(r.Context(), id)
	if errors.Is(err, ErrPostNotFound) {
		return bson.ObjectID{}, nil, infrastructure.NotFound("post not found")
	}
	if err != nil {
		return bson.ObjectID{}, nil, infrastructure.ServerError()
	}
	return callerID, post, nil
}

// postFromRequest accepts either a multipart upload (caption field plus an
// "image" file, spooled to a temp file) or a JSON body with an inline
// payload. The returned cleanup removes any temp file.
func postFromRequest(r *http.Request) (string, string, func(), error) {
	noop := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		src, _, err := r.FormFile("image")
		if err != nil {
			return "", "", noop, infrastructure.BadRequest("all fields are required")
		}
		defer src.Close()

		caption := strings.TrimSpace(r.FormValue("caption"))
		if caption == "" {
			return "", "", noop, infrastructure.BadRequest("all fields are required")
		}

		tmp, err := os.CreateTemp("", "post-*")
		if err != nil {
			return "", "", noop, infrastructure.ServerError()
		}
		if _, err := io.Copy(tmp, src); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", "", noop, infrastructure.ServerError()
		}
		tmp.Close()
		return caption, tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.Caption) == "" || req.Image == "" {
		return "", "", noop, infrastructure.BadRequest("all fields are required")
	}
	return req.Caption, req.Image, noop, nil
}
