package model

import "errors"

// ErrMalformedDocument marks a persisted or imported document that is not a
// mapping of participants with the expected fields.
var ErrMalformedDocument = errors.New("malformed ratings document")
