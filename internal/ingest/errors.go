package ingest

import "errors"

var (
	// ErrInvalidIdentifier is returned when a block identifier is neither a
	// non-negative integer string nor a 0x-prefixed hash.
	ErrInvalidIdentifier = errors.New("invalid block identifier")

	// ErrBlockNotFound is returned when the chain data source does not know
	// the requested block.
	ErrBlockNotFound = errors.New("block not found")
)
