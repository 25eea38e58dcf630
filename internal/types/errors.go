package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoContainers      = errors.New("no product containers matched")
	ErrNoSearchInput     = errors.New("no search input found")
	ErrNotFound          = errors.New("product not found")
	ErrDriverClosed      = errors.New("driver session is closed")
	ErrUnsupportedSubmit = errors.New("element cannot be submitted")
	ErrEmptyChain        = errors.New("selector chain is empty")
)

// FailureKind classifies a failure observed during a scraping run.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	// KindSelectorMiss: a selector matched nothing or failed to evaluate.
	KindSelectorMiss
	// KindFieldFailure: extracting one field of one container panicked or errored.
	KindFieldFailure
	// KindContainerMiss: no container selector matched on a page.
	KindContainerMiss
	// KindItemFailure: assembling one container failed; the container is skipped.
	KindItemFailure
	// KindNavigationFailure: one navigation action failed to load or extract.
	KindNavigationFailure
	// KindDriverFailure: the automation session itself is unusable. Fatal.
	KindDriverFailure
)

func (k FailureKind) String() string {
	switch k {
	case KindSelectorMiss:
		return "selector_miss"
	case KindFieldFailure:
		return "field_failure"
	case KindContainerMiss:
		return "container_miss"
	case KindItemFailure:
		return "item_failure"
	case KindNavigationFailure:
		return "navigation_failure"
	case KindDriverFailure:
		return "driver_failure"
	default:
		return "unknown"
	}
}

// Fatal reports whether failures of this kind must abort the run.
func (k FailureKind) Fatal() bool {
	return k == KindDriverFailure
}

// SelectorError wraps a failure to evaluate one selector expression.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// NavigationError wraps a failure to load or extract one candidate URL.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// DriverError wraps a failure of the browser-automation session.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// ItemError wraps a failure assembling the container at Index (1-based).
type ItemError struct {
	Index int
	Field Field
	Err   error
}

func (e *ItemError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("item %d field %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during persistence or export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KindOf classifies err into the failure taxonomy.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	var driverErr *DriverError
	if errors.As(err, &driverErr) || errors.Is(err, ErrDriverClosed) {
		return KindDriverFailure
	}
	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		if itemErr.Field != "" {
			return KindFieldFailure
		}
		return KindItemFailure
	}
	var navErr *NavigationError
	if errors.As(err, &navErr) {
		return KindNavigationFailure
	}
	if errors.Is(err, ErrNoContainers) {
		return KindContainerMiss
	}
	var selErr *SelectorError
	if errors.As(err, &selErr) {
		return KindSelectorMiss
	}
	return KindUnknown
}

// IsFatal reports whether err must stop a run. Per-page timeouts are not fatal;
// callers check their own context for cancellation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Fatal()
}
