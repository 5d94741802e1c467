package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification
var (
	ErrUnsupportedArchiveType = errors.New("unsupported archive type")
	ErrUnhandledCompression   = errors.New("unhandled compression format")
	ErrArchiveMismatch        = errors.New("archive content does not match its extension")
	ErrInvalidRequest         = errors.New("invalid fetch request")
	ErrRootBusy               = errors.New("root directory is in use by another run")
	ErrNotFound               = errors.New("not found")
	ErrInvalidRunState        = errors.New("run is not in a state that allows this operation")
)

// ErrorKind is a coarse-grained categorization for errors
type ErrorKind string

const (
	KindUnsupportedArchive   ErrorKind = "unsupported_archive"
	KindUnhandledCompression ErrorKind = "unhandled_compression"
	KindFilesystem           ErrorKind = "filesystem"
	KindTransport            ErrorKind = "transport"
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindArchive              ErrorKind = "archive"
)

// OpError wraps an underlying error with operation context and a kind
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // optional: relevant file path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err carries an OpError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// FSError wraps a filesystem mutation failure
func FSError(op, path string, err error) error {
	return &OpError{Op: op, Kind: KindFilesystem, Path: path, Err: err}
}
