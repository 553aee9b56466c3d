package fsstore

import "errors"

// Sentinel kinds for file store errors.
var (
	ErrList         = errors.New("list directory failed")
	ErrNotDirectory = errors.New("path exists and is not a directory")
	ErrNotWritable  = errors.New("directory is not writable")
	ErrReset        = errors.New("reset directory failed")
	ErrCopy         = errors.New("copy file failed")
)
