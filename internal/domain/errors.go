package domain

import "errors"

var ErrNotFound = errors.New("not found")
var ErrInvalidID = errors.New("invalid game id")
