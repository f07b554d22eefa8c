// Package identity builds and validates the identifiers used throughout the
// discovery tree.
//
// Two identifier families exist:
//
//   - Tree ids: hierarchical, path-style strings ("provider/cluster-a/db1")
//     that identify a position in the tree. The first path segment is always
//     the id of the provider that owns the subtree.
//   - Resource ids: opaque strings identifying a cross-cutting backing
//     resource (for example a cluster that appears under several
//     subscriptions). Every resource id is namespaced with its owning
//     provider id and a reserved separator so that independently-written
//     providers can never emit colliding identifiers, and so the owning
//     provider can be recovered from the identifier alone.
package identity

import "strings"

const (
	// NamespaceSeparator joins a provider id and a raw resource id.
	// Provider ids must not contain it, which makes namespacing reversible.
	NamespaceSeparator = "_"

	// PathSeparator joins tree id segments.
	PathSeparator = "/"
)

// BuildChildID builds the tree id of a child from its parent's tree id and
// the child's segment. Distinct (parentID, segment) pairs yield distinct ids.
// An empty parentID yields the segment itself, which is how provider roots
// are registered.
func BuildChildID(parentID, segment string) string {
	if parentID == "" {
		return segment
	}
	return parentID + PathSeparator + segment
}

// ValidateProviderID checks that a provider id is usable as a namespace
// prefix: non-empty and free of both reserved separators.
func ValidateProviderID(providerID string) error {
	if providerID == "" {
		return &InvalidProviderIDError{ProviderID: providerID, Reason: "must not be empty"}
	}
	if strings.Contains(providerID, NamespaceSeparator) {
		return &InvalidProviderIDError{
			ProviderID: providerID,
			Reason:     "must not contain the namespace separator " + strconvQuote(NamespaceSeparator),
		}
	}
	if strings.Contains(providerID, PathSeparator) {
		return &InvalidProviderIDError{
			ProviderID: providerID,
			Reason:     "must not contain the path separator " + strconvQuote(PathSeparator),
		}
	}
	return nil
}

// NamespaceResourceID prefixes rawID with providerID and the namespace
// separator. Namespacing an id that already carries the same provider's
// prefix is a no-op: resource ids may pass through several layers of the
// same provider's code before reaching the orchestrator.
func NamespaceResourceID(providerID, rawID string) (string, error) {
	if err := ValidateProviderID(providerID); err != nil {
		return "", err
	}
	if strings.HasPrefix(rawID, providerID+NamespaceSeparator) {
		return rawID, nil
	}
	return providerID + NamespaceSeparator + rawID, nil
}

// ExtractProviderID returns the provider id a namespaced resource id was
// produced with. The second return value is false when the id carries no
// separator at all, meaning it was not produced by this scheme and the
// caller must decide how far to trust it.
func ExtractProviderID(namespacedID string) (string, bool) {
	idx := strings.Index(namespacedID, NamespaceSeparator)
	if idx < 0 {
		return "", false
	}
	return namespacedID[:idx], true
}

// IsNamespaced reports whether id carries a namespace prefix.
func IsNamespaced(id string) bool {
	_, ok := ExtractProviderID(id)
	return ok
}

// OwningProviderID returns the provider id that owns a tree id: its first
// path segment. Roots register under the bare provider id, so ownership is
// derivable from any descendant's tree id.
func OwningProviderID(treeID string) string {
	if idx := strings.Index(treeID, PathSeparator); idx >= 0 {
		return treeID[:idx]
	}
	return treeID
}

// ValidateResourceID enforces the namespace invariant at the orchestrator
// boundary: a resource id contributed by providerID must start with
// providerID followed by the namespace separator. A violation is a
// plugin-contract defect, never a transient condition.
func ValidateResourceID(providerID, resourceID string) error {
	if strings.HasPrefix(resourceID, providerID+NamespaceSeparator) {
		return nil
	}
	return &NamespaceViolationError{ResourceID: resourceID, ProviderID: providerID}
}

func strconvQuote(s string) string {
	return `"` + s + `"`
}
