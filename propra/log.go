package propra

import "github.com/op/go-logging"

var log = logging.MustGetLogger("propra")
