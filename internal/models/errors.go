package models

import "errors"

var (
	// ErrConfiguration marks fatal setup problems: an empty provider pool,
	// a log that does not match any schema, an invalid config file.
	ErrConfiguration = errors.New("configuration error")

	// ErrUseAfterRelease is returned by reads on a released log source
	ErrUseAfterRelease = errors.New("use after release")
)
