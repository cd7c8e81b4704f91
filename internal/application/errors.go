package application

import (
	"errors"
	"fmt"
)

var ErrConflict = errors.New("conflict")
var ErrBadRequest = errors.New("bad request")

// TokenFetchError reports a failed client-credentials exchange. Status is 0
// when no HTTP response was received.
type TokenFetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *TokenFetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("token fetch failed: status %d: %v", e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("token fetch failed: status %d: %s", e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("token fetch failed: %v", e.Err)
	}
	return "token fetch failed"
}

func (e *TokenFetchError) Unwrap() error { return e.Err }

// UpstreamAuthError is returned by a poll that could not obtain a token.
type UpstreamAuthError struct {
	Err error
}

func (e *UpstreamAuthError) Error() string { return "upstream auth: " + e.Err.Error() }
func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// UpstreamPriceError reports a failed live price request.
type UpstreamPriceError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamPriceError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("upstream prices: status %d: %v", e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("upstream prices: status %d: %s", e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("upstream prices: %v", e.Err)
	}
	return "upstream prices failed"
}

func (e *UpstreamPriceError) Unwrap() error { return e.Err }

// StoreError reports a failed history store operation. A failed append leaves
// the store as it was.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func asStoreError(op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
