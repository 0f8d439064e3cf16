package email

import "github.com/google/wire"

var Set = wire.NewSet(NewSender)
