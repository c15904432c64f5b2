package services

import "errors"

var (
	// ErrNotFound signals that an event or record does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals that the requester does not own the resource
	ErrForbidden = errors.New("forbidden")
	// ErrNoImages signals that an event has no uploaded images to match against
	ErrNoImages = errors.New("event has no images")
	// ErrNoMatches signals that no candidate met the acceptance threshold
	ErrNoMatches = errors.New("no matching faces found")
	// ErrNoSelfie signals that no selfie was supplied and no default exists
	ErrNoSelfie = errors.New("no selfie available")
)
