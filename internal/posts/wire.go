package posts

import "github.com/google/wire"

var Set = wire.NewSet(
	NewMongoRepository,
	NewHandler,
)
