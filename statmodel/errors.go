package statmodel

import "errors"

// ErrInvalidParameter is returned when a density receives a parameter
// outside of its support (non-positive scale, rate, or dispersion), or
// a response that is not a non-negative integer where a count is
// required.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrShapeMismatch is returned when draws, covariates, and responses have
// inconsistent dimensions.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrInsufficientDraws is returned when there are too few posterior draws
// to fit the tail of the importance ratio distribution.
var ErrInsufficientDraws = errors.New("insufficient draws")
