package sessions

import "github.com/google/wire"

var Set = wire.NewSet(NewMongoRepository)
