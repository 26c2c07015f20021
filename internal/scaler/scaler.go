package scaler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Sku is a Fabric capacity size tier.
type Sku string

const (
	SkuF2    Sku = "F2"
	SkuF4    Sku = "F4"
	SkuF8    Sku = "F8"
	SkuF16   Sku = "F16"
	SkuF32   Sku = "F32"
	SkuF64   Sku = "F64"
	SkuF128  Sku = "F128"
	SkuF256  Sku = "F256"
	SkuF512  Sku = "F512"
	SkuF1024 Sku = "F1024"
)

// Skus lists every tier the capacity API accepts, smallest first.
var Skus = []Sku{SkuF2, SkuF4, SkuF8, SkuF16, SkuF32, SkuF64, SkuF128, SkuF256, SkuF512, SkuF1024}

func ParseSku(s string) (Sku, error) {
	for _, sku := range Skus {
		if string(sku) == s {
			return sku, nil
		}
	}
	return "", errors.Errorf("unknown capacity sku %q, must be one of %v", s, Skus)
}

// State is the capacity lifecycle state as reported by the management API.
type State string

const (
	StateActive              State = "Active"
	StateRunning             State = "Running"
	StatePaused              State = "Paused"
	StatePausing             State = "Pausing"
	StateResuming            State = "Resuming"
	StateStarting            State = "Starting"
	StatePreparingForRunning State = "PreparingForRunning"
	StateScaling             State = "Scaling"
	StateProvisioning        State = "Provisioning"
	StateUpdating            State = "Updating"
	StateFailed              State = "Failed"
	StateError               State = "Error"
)

// IsRunning reports whether the capacity is serving workloads.
func (s State) IsRunning() bool {
	return s == StateActive || s == StateRunning
}

// IsStopped reports whether the capacity is paused.
func (s State) IsStopped() bool {
	return s == StatePaused
}

// IsFailed reports whether the capacity entered a failure state.
func (s State) IsFailed() bool {
	return s == StateFailed || s == StateError
}

// IsTransitional reports whether the state is a recognized in-flight value.
// Unrecognized states are NOT transitional; callers decide how to treat them
// (the start-wait keeps polling, bounded by its timeout).
func (s State) IsTransitional() bool {
	switch s {
	case StatePausing, StateResuming, StateStarting, StatePreparingForRunning,
		StateScaling, StateProvisioning, StateUpdating:
		return true
	}
	return false
}

// ProvisioningState is the status of the last control-plane operation,
// independent of the lifecycle state.
type ProvisioningState string

const (
	ProvisioningSucceeded  ProvisioningState = "Succeeded"
	ProvisioningFailed     ProvisioningState = "Failed"
	ProvisioningInProgress ProvisioningState = "InProgress"
)

// Capacity is a point-in-time snapshot of the remote capacity resource.
// Properties holds the raw properties blob exactly as the API returned it;
// updates must echo it back unmodified because the API replaces the full
// object rather than patching it.
type Capacity struct {
	ID                string
	Name              string
	Location          string
	Sku               Sku
	State             State
	ProvisioningState ProvisioningState
	Properties        json.RawMessage
}

// API is the management-plane surface the orchestrator drives. The azure
// package provides the production implementation.
type API interface {
	// GetCapacity reads the current capacity snapshot.
	GetCapacity(ctx context.Context, id ResourceID) (*Capacity, error)
	// Resume asks a paused capacity to start. It does not wait for the
	// capacity to reach a running state.
	Resume(ctx context.Context, id ResourceID) error
	// Suspend asks a running capacity to pause.
	Suspend(ctx context.Context, id ResourceID) error
	// UpdateSku replaces the capacity with base's location and properties
	// plus the target sku.
	UpdateSku(ctx context.Context, id ResourceID, base *Capacity, target Sku) error
}

// OperationResult is the structured outcome of a single invocation. It is
// emitted on every terminal path, success or failure, so callers consuming
// both stdout and the exit status see consistent information.
type OperationResult struct {
	OperationID   string    `json:"operationId"`
	Capacity      string    `json:"capacity"`
	Subscription  string    `json:"subscription"`
	ResourceGroup string    `json:"resourceGroup"`
	Region        string    `json:"region,omitempty"`
	PreviousSku   Sku       `json:"previousSku,omitempty"`
	CurrentSku    Sku       `json:"currentSku,omitempty"`
	TargetSku     Sku       `json:"targetSku,omitempty"`
	State         State     `json:"state,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	Error         bool      `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}
