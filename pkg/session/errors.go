package session

import "errors"

var (
	// ErrNoCompanyCounts is returned when the per-company unread breakdown is
	// requested but no counts source was supplied at assembly.
	ErrNoCompanyCounts = errors.New("session: no company counts source")
)
