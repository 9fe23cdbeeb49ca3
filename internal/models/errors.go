package models

import "fmt"

// StoreUnavailableError reports that a read from the document store failed
// or did not finish before its deadline.
type StoreUnavailableError struct {
	Source string
	Err    error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Source, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
