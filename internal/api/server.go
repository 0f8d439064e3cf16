package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"smilyweb/infrastructure"
	"smilyweb/internal/auth"
	"smilyweb/internal/broadcast"
	"smilyweb/internal/posts"
	"smilyweb/internal/user"
)

const requestsPerSecond = 10

type Server struct {
	router *mux.Router
}

func NewServer(
	authHandler *auth.Handler,
	userHandler *user.Handler,
	postHandler *posts.Handler,
	authMW *auth.Middleware,
	hub *broadcast.Hub,
) *Server {
	router := mux.NewRouter()
	router.Use(Logger)
	router.Use(RateLimit(requestsPerSecond))

	s := &Server{router: router}
	s.setupRoutes(authHandler, userHandler, postHandler, authMW, hub)
	return s
}

func (s *Server) setupRoutes(
	authHandler *auth.Handler,
	userHandler *user.Handler,
	postHandler *posts.Handler,
	authMW *auth.Middleware,
	hub *broadcast.Hub,
) {
	s.router.HandleFunc("/healthcheck", s.healthCheck).Methods(http.MethodGet)
	s.router.Handle("/ws", hub)

	// Public surface.
	s.router.Handle("/register", infrastructure.Handler(authHandler.Register)).Methods(http.MethodPost)
	s.router.Handle("/login", infrastructure.Handler(authHandler.Login)).Methods(http.MethodPost)
	s.router.Handle("/auth/google/callback", infrastructure.Handler(authHandler.GoogleCallback)).Methods(http.MethodGet)
	s.router.Handle("/user/password/forgot", infrastructure.Handler(userHandler.ForgotPassword)).Methods(http.MethodPost)
	s.router.Handle("/user/password/reset/{token}", infrastructure.Handler(userHandler.ResetPassword)).Methods(http.MethodPut)

	// Everything below requires a live identity.
	protected := s.router.NewRoute().Subrouter()
	protected.Use(authMW.RequireAuth)

	protected.Handle("/logout", infrastructure.Handler(authHandler.Logout)).Methods(http.MethodGet)
	protected.Handle("/me", infrastructure.Handler(userHandler.Me)).Methods(http.MethodGet)
	protected.Handle("/user/password/update", infrastructure.Handler(userHandler.UpdatePassword)).Methods(http.MethodPut)
	protected.Handle("/user/details/update", infrastructure.Handler(userHandler.UpdateDetails)).Methods(http.MethodPut)
	protected.Handle("/user/avatar/update", infrastructure.Handler(userHandler.UpdateAvatar)).Methods(http.MethodPut)
	protected.Handle("/user/follow/{id}", infrastructure.Handler(userHandler.FollowUser)).Methods(http.MethodPut)
	protected.Handle("/user/unfollow/{id}", infrastructure.Handler(userHandler.UnfollowUser)).Methods(http.MethodPut)
	protected.Handle("/user/{id}", infrastructure.Handler(userHandler.GetSingleUser)).Methods(http.MethodGet)

	protected.Handle("/post/new", infrastructure.Handler(postHandler.CreatePost)).Methods(http.MethodPost)
	protected.Handle("/posts", infrastructure.Handler(postHandler.GetAllPosts)).Methods(http.MethodGet)
	protected.Handle("/user/posts/{id}", infrastructure.Handler(postHandler.GetUserAllPosts)).Methods(http.MethodGet)
	protected.Handle("/post/{id}", infrastructure.Handler(postHandler.GetSinglePost)).Methods(http.MethodGet)
	protected.Handle("/post/{id}", infrastructure.Handler(postHandler.DeletePost)).Methods(http.MethodDelete)
	protected.Handle("/likepost/{id}", infrastructure.Handler(postHandler.LikePost)).Methods(http.MethodPut)
	protected.Handle("/dislikepost/{id}", infrastructure.Handler(postHandler.DislikePost)).Methods(http.MethodPut)
	protected.Handle("/sharepost/{id}", infrastructure.Handler(postHandler.SharePost)).Methods(http.MethodPut)
	protected.Handle("/makecomment/{id}", infrastructure.Handler(postHandler.MakeComment)).Methods(http.MethodPut)

	// Admin surface.
	admin := s.router.NewRoute().Subrouter()
	admin.Use(authMW.RequireAuth)
	admin.Use(auth.RequireRole(user.RoleAdmin))

	admin.Handle("/users", infrastructure.Handler(userHandler.GetAllUsers)).Methods(http.MethodGet)
	admin.Handle("/user/{id}", infrastructure.Handler(userHandler.DeleteUser)).Methods(http.MethodDelete)
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "server is up and running",
	})
}
