package address

import "fmt"

// FormatError reports a malformed address string.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed address %q: %s", e.Input, e.Reason)
}

// OutOfRangeError reports a well-formed address that names no node in the
// document it was resolved against.
type OutOfRangeError struct {
	Addr Address
	Len  int // length of the sequence the index was checked against
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("address %s out of range (have %d)", e.Addr, e.Len)
}
