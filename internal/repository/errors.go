// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure scenarios:
// duplicate unique fields surface as conflicts, missing rows as
// not-found responses.
package repository

import "errors"

// ErrEmailExists is returned when registering an account with an
// email that is already taken. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrLotNameExists is returned when creating or renaming a parking lot
// to a location name that is already in use. Handlers should translate
// this into an HTTP 409 response.
var ErrLotNameExists = errors.New("lot name already exists")

// ErrLotNotFound is returned when a parking lot lookup fails.
var ErrLotNotFound = errors.New("lot not found")
