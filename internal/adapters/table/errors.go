package table

import "errors"

// Sentinel kinds for table errors.
var (
	ErrOpen      = errors.New("open table failed")
	ErrParse     = errors.New("parse table failed")
	ErrWrite     = errors.New("write table failed")
	ErrDelimiter = errors.New("invalid delimiter")
)
