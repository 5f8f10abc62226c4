package proxy

import "errors"

var errInvalidTarget = errors.New("target must be an absolute url")
