package identity

import (
	"errors"
	"fmt"
)

// NamespaceViolationError reports a resource id that is not prefixed with the
// id of the provider that contributed it. A collision here would let one
// provider silently shadow another provider's resource in caches and
// cross-view lookups, so the violation is fatal for the operation that
// surfaced it and is never retried.
type NamespaceViolationError struct {
	// ResourceID is the offending identifier as returned by the provider.
	ResourceID string

	// ProviderID is the provider the identifier was expected to be
	// namespaced with.
	ProviderID string
}

// Error implements the error interface for NamespaceViolationError.
func (e *NamespaceViolationError) Error() string {
	return fmt.Sprintf("resource id %q is not namespaced with provider id %q", e.ResourceID, e.ProviderID)
}

// IsNamespaceViolation checks if an error is or wraps a NamespaceViolationError.
func IsNamespaceViolation(err error) bool {
	var nsErr *NamespaceViolationError
	return errors.As(err, &nsErr)
}

// InvalidProviderIDError reports a provider id that cannot serve as a
// namespace prefix, for example because it contains a reserved separator.
// It is raised at provider registration time.
type InvalidProviderIDError struct {
	ProviderID string
	Reason     string
}

// Error implements the error interface for InvalidProviderIDError.
func (e *InvalidProviderIDError) Error() string {
	return fmt.Sprintf("invalid provider id %q: %s", e.ProviderID, e.Reason)
}

// IsInvalidProviderID checks if an error is or wraps an InvalidProviderIDError.
func IsInvalidProviderID(err error) bool {
	var idErr *InvalidProviderIDError
	return errors.As(err, &idErr)
}
