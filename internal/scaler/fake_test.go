package scaler

import (
	"context"
	"encoding/json"
	"fmt"
)

// fakeAPI replays a scripted sequence of snapshots: each GetCapacity call
// consumes the next one, and the last snapshot repeats once the script is
// exhausted. Mutating calls are recorded for assertions.
type fakeAPI struct {
	snapshots []*Capacity
	// getErr fails GetCapacity; with getErrAfter set, only once that many
	// reads have succeeded
	getErr      error
	getErrAfter int

	gets         int
	resumeCalls  int
	suspendCalls int
	updates      []updateCall

	resumeErr  error
	suspendErr error
	updateErr  error
}

type updateCall struct {
	base   *Capacity
	target Sku
}

func (f *fakeAPI) GetCapacity(_ context.Context, _ ResourceID) (*Capacity, error) {
	if f.getErr != nil && f.gets >= f.getErrAfter {
		return nil, f.getErr
	}
	i := f.gets
	f.gets++
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

func (f *fakeAPI) Resume(_ context.Context, _ ResourceID) error {
	f.resumeCalls++
	return f.resumeErr
}

func (f *fakeAPI) Suspend(_ context.Context, _ ResourceID) error {
	f.suspendCalls++
	return f.suspendErr
}

func (f *fakeAPI) UpdateSku(_ context.Context, _ ResourceID, base *Capacity, target Sku) error {
	f.updates = append(f.updates, updateCall{base: base, target: target})
	return f.updateErr
}

func snapshot(sku Sku, state State) *Capacity {
	return snapshotProv(sku, state, ProvisioningSucceeded)
}

func snapshotProv(sku Sku, state State, prov ProvisioningState) *Capacity {
	props := json.RawMessage(fmt.Sprintf(`{"state":%q,"provisioningState":%q,"administration":{"members":["admin@contoso.com"]}}`, state, prov))
	return &Capacity{
		ID:                testID.Path(),
		Name:              testID.Name,
		Location:          "westeurope",
		Sku:               sku,
		State:             state,
		ProvisioningState: prov,
		Properties:        props,
	}
}

var testID = ResourceID{Subscription: "sub-1", ResourceGroup: "rg-1", Name: "cap1"}
