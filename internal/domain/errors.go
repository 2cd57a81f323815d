package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for sync operations
var (
	// ErrTransient marks a remote failure worth retrying (timeouts, 5xx, resets)
	ErrTransient = errors.New("transient remote failure")

	// ErrPermanent marks a remote failure that retrying will not fix
	ErrPermanent = errors.New("permanent remote failure")

	// ErrNotFound indicates the provider does not know the entity
	ErrNotFound = errors.New("entity not found remotely")

	// ErrUnauthorized indicates the provider rejected our credentials
	ErrUnauthorized = errors.New("provider rejected credentials")

	// ErrMalformedResponse indicates a response body we could not decode
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrNoIdentity indicates the provider has no id it can look the entity up by
	ErrNoIdentity = errors.New("no usable provider id")

	// ErrStorage marks a local storage failure
	ErrStorage = errors.New("local storage failure")

	// ErrNotFoundLocally indicates the entity has no local record
	ErrNotFoundLocally = errors.New("entity not found locally")

	// ErrNotAuthenticated indicates an operation needs a logged-in session
	ErrNotAuthenticated = errors.New("not authenticated")
)

// RemoteError is a classified provider failure.
type RemoteError struct {
	Provider  string
	Status    int // HTTP status, 0 if the request never got a response
	Transient bool
	Err       error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is matches ErrTransient or ErrPermanent according to the classification.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Transient
	case ErrPermanent:
		return !e.Transient
	}
	return false
}

// NewTransient wraps err as a retryable failure from provider.
func NewTransient(provider string, status int, err error) error {
	return &RemoteError{Provider: provider, Status: status, Transient: true, Err: err}
}

// NewPermanent wraps err as a non-retryable failure from provider.
func NewPermanent(provider string, status int, err error) error {
	return &RemoteError{Provider: provider, Status: status, Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// StorageError is a failure of the local durable store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err, passing nil and ErrNotFoundLocally through.
func NewStorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFoundLocally) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
