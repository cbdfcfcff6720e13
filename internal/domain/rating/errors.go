package rating

import "errors"

// ErrDegenerateInput marks inputs whose arithmetic divides by zero or
// produces a non-finite rating.
var ErrDegenerateInput = errors.New("degenerate rating input")
