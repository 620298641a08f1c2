package filesource

import "errors"

var (
	ErrEmptyPath         = errors.New("filesource: path is required")
	ErrUnsupportedFormat = errors.New("filesource: unsupported format")
	ErrReadFailed        = errors.New("filesource: failed to read definitions file")
	ErrDecodeFailed      = errors.New("filesource: failed to decode definitions file")
	ErrWatchFailed       = errors.New("filesource: failed to watch definitions file")
)
