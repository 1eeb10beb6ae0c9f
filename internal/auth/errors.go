package auth

import "errors"

// ErrUnauthorized signals a missing or insufficient permission grant.
var ErrUnauthorized = errors.New("auth: unauthorized")
