package pricing

import "errors"

// ErrInvalidConfiguration means the catalog cannot produce a price for the
// request: a fixed service without a usable fixed price, or a tiered service
// with no price rows at all.
var ErrInvalidConfiguration = errors.New("invalid pricing configuration")

var ErrServiceNotFound = errors.New("service not found")
