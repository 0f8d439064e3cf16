//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"smilyweb/config"
	"smilyweb/internal/api"
	"smilyweb/internal/auth"
	"smilyweb/internal/broadcast"
	"smilyweb/internal/database"
	"smilyweb/internal/email"
	"smilyweb/internal/media"
	"smilyweb/internal/posts"
	"smilyweb/internal/sessions"
	"smilyweb/internal/user"
)

var appSet = wire.NewSet(
	sessions.Set,
	user.Set,
	auth.Set,
	email.Set,
	media.Set,
	broadcast.Set,
	posts.Set,
	api.Set,
	wire.Bind(new(user.Mailer), new(*email.Sender)),
	wire.Bind(new(user.MediaHost), new(*media.Client)),
	wire.Bind(new(posts.MediaHost), new(*media.Client)),
)

func InitializeServer(cfg *config.Config, db *database.Database) (*api.Server, error) {
	wire.Build(appSet)
	return nil, nil
}
