package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and clients.
// Services translate them into domain errors; transports never see them directly.
//
//   - ErrNotFound: the record does not exist
//   - ErrConflict: a unique constraint (email) rejected the write
//   - ErrExpired: a token or revocation entry has passed its lifetime
//   - ErrUnavailable: a backing service cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
