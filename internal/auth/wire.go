package auth

import "github.com/google/wire"

var Set = wire.NewSet(
	NewAccessCodec,
	NewRefreshCodec,
	NewTokenIssuer,
	NewMiddleware,
	NewGoogleClient,
	NewHandler,
)
