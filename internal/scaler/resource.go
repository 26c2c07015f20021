package scaler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Provider is the ARM resource provider for Fabric capacities.
	Provider = "Microsoft.Fabric"

	id_FORMAT = "/subscriptions/{subscriptionId}/resourceGroups/{resourceGroup}/providers/" + Provider + "/capacities/{name}"
)

// ErrInvalidIdentifier reports a capacity resource identifier that does not
// match the expected ARM path shape.
var ErrInvalidIdentifier = errors.Errorf("invalid capacity resource identifier, expected %s", id_FORMAT)

// ResourceID holds the coordinates embedded in a capacity resource identifier.
type ResourceID struct {
	Subscription  string
	ResourceGroup string
	Name          string
}

// ParseResourceID extracts the subscription, resource group and capacity name
// from an ARM resource identifier. Segment keys are matched case-insensitively,
// the way ARM treats them; the embedded values are not validated further - the
// management API is authoritative for GUID and name syntax.
func ParseResourceID(id string) (*ResourceID, error) {
	s := strings.Split(strings.Trim(id, "/"), "/")
	if len(s) != 8 {
		return nil, errors.Wrapf(ErrInvalidIdentifier, "got %q", id)
	}
	if !strings.EqualFold(s[0], "subscriptions") ||
		!strings.EqualFold(s[2], "resourceGroups") ||
		!strings.EqualFold(s[4], "providers") ||
		!strings.EqualFold(s[5], Provider) ||
		!strings.EqualFold(s[6], "capacities") {
		return nil, errors.Wrapf(ErrInvalidIdentifier, "got %q", id)
	}
	if s[1] == "" || s[3] == "" || s[7] == "" {
		return nil, errors.Wrapf(ErrInvalidIdentifier, "got %q", id)
	}
	return &ResourceID{
		Subscription:  s[1],
		ResourceGroup: s[3],
		Name:          s[7],
	}, nil
}

// Path returns the canonical ARM resource path for the capacity.
func (r ResourceID) Path() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/capacities/%s",
		r.Subscription, r.ResourceGroup, Provider, r.Name)
}

func (r ResourceID) String() string {
	return r.Path()
}
