// Package repository implements the credential store. These sentinel values
// allow higher layers such as services and handlers to distinguish between
// different failure scenarios regardless of which backend (MySQL, MongoDB
// or in-memory) is serving the request. For example, ErrDuplicate signals a
// unique-index violation on username or email, while ErrStaleToken tells the
// caller that a compare-and-swap on the stored refresh token lost.
package repository

import "errors"

// ErrNotFound is returned when no user matches the lookup. Handlers
// translate this into an HTTP 404 or 401 depending on the operation.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned when an insert or update would violate the
// uniqueness of username or email. Handlers should translate this into
// an HTTP 409 response.
var ErrDuplicate = errors.New("username or email already exists")

// ErrStaleToken is returned by SwapRefreshToken when the stored refresh
// token no longer equals the expected value.
var ErrStaleToken = errors.New("stored refresh token changed")
