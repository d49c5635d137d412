package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// KeyPrefix namespaces every stored form document.
const KeyPrefix = "quality-master-live-form"

// SchemaVersion is the version written by this build. Documents stored under
// an older version are never read again; they are orphaned, not migrated.
const SchemaVersion = 10

// NoOrder is the sentinel used when no production order selects the scope.
const NoOrder = "NO_PO"

// ErrInvalidScope is returned for scope keys that cannot address storage.
var ErrInvalidScope = errors.New("form: invalid scope key")

// ScopeKey isolates one production order's document on this device.
type ScopeKey struct {
	SchemaVersion   int
	ProductionOrder string
}

// NewScopeKey returns the key for the current schema and the given order.
func NewScopeKey(productionOrder string) ScopeKey {
	return ScopeKey{SchemaVersion: SchemaVersion, ProductionOrder: strings.TrimSpace(productionOrder)}
}

// Order returns the production order, or NoOrder when none was supplied.
func (k ScopeKey) Order() string {
	if o := strings.TrimSpace(k.ProductionOrder); o != "" {
		return o
	}
	return NoOrder
}

// Identifier returns the canonical storage key,
// e.g. "quality-master-live-form:v10:PO-100".
func (k ScopeKey) Identifier() (string, error) {
	if k.SchemaVersion <= 0 {
		return "", fmt.Errorf("%w: schema version %d", ErrInvalidScope, k.SchemaVersion)
	}
	return fmt.Sprintf("%s:v%d:%s", KeyPrefix, k.SchemaVersion, k.Order()), nil
}

// String implements fmt.Stringer.
func (k ScopeKey) String() string {
	id, err := k.Identifier()
	if err != nil {
		return "invalid scope"
	}
	return id
}

// ParseIdentifier reverses Identifier.
func ParseIdentifier(id string) (ScopeKey, error) {
	rest, ok := strings.CutPrefix(id, KeyPrefix+":v")
	if !ok {
		return ScopeKey{}, fmt.Errorf("%w: %q", ErrInvalidScope, id)
	}
	ver, order, ok := strings.Cut(rest, ":")
	if !ok || order == "" {
		return ScopeKey{}, fmt.Errorf("%w: %q", ErrInvalidScope, id)
	}
	n, err := strconv.Atoi(ver)
	if err != nil || n <= 0 {
		return ScopeKey{}, fmt.Errorf("%w: %q", ErrInvalidScope, id)
	}
	k := ScopeKey{SchemaVersion: n}
	if order != NoOrder {
		k.ProductionOrder = order
	}
	return k, nil
}
