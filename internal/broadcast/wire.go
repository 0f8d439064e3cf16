package broadcast

import "github.com/google/wire"

var Set = wire.NewSet(NewHub)
