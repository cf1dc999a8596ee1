package resource

import "errors"

var (
	// bad request errors
	ErrEmptyRecordID   = errors.New("record ID cannot be empty")
	ErrEmptySearchTerm = errors.New("search term cannot be empty")
	ErrMissingFields   = errors.New("all fields are required")
	ErrInvalidAge      = errors.New("age must be between 0 and 2147483647")
	ErrEmptyContent    = errors.New("comment content cannot be empty")
	ErrNoDataProvided  = errors.New("no data provided")

	// not found errors
	ErrRecordNotFound  = errors.New("record not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCommentNotFound = errors.New("comment not found")

	// constraint errors
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDuplicateEmail      = errors.New("a user with this email already exists")
)

// ErrorKind groups service errors by how a caller should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindNotFound
	KindConstraintViolation
)

// Kind classifies err. Anything not produced by this package is an adapter failure.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEmptyRecordID), errors.Is(err, ErrEmptySearchTerm), errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidAge), errors.Is(err, ErrEmptyContent), errors.Is(err, ErrNoDataProvided):
		return KindBadRequest

	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCommentNotFound):
		return KindNotFound

	case errors.Is(err, ErrConstraintViolation), errors.Is(err, ErrDuplicateEmail):
		return KindConstraintViolation

	default:
		return KindInternal
	}
}

// publicErrors is checked in order, most specific first.
var publicErrors = []error{
	ErrEmptyRecordID, ErrEmptySearchTerm, ErrMissingFields, ErrInvalidAge, ErrEmptyContent, ErrNoDataProvided,
	ErrUserNotFound, ErrCommentNotFound, ErrRecordNotFound,
	ErrDuplicateEmail, ErrConstraintViolation,
}

// PublicMessage returns the message of the sentinel err wraps, without the operation chain around it. It returns
// an empty string when err wraps none of this package's errors.
func PublicMessage(err error) string {
	for _, sentinel := range publicErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}
