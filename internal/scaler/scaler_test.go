package scaler

import "testing"

func TestParseSku(t *testing.T) {
	tests := []struct {
		name    string
		sku     string
		want    Sku
		wantErr bool
	}{
		{
			name: "smallest tier",
			sku:  "F2",
			want: SkuF2,
		},
		{
			name: "largest tier",
			sku:  "F1024",
			want: SkuF1024,
		},
		{
			name:    "lowercase is not accepted",
			sku:     "f64",
			wantErr: true,
		},
		{
			name:    "unknown tier",
			sku:     "F3",
			wantErr: true,
		},
		{
			name:    "power bi sku",
			sku:     "A4",
			wantErr: true,
		},
		{
			name:    "empty",
			sku:     "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSku(tt.sku)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSku(%q) error = %v, wantErr %v", tt.sku, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSku(%q) = %v, want %v", tt.sku, got, tt.want)
			}
		})
	}
}

func TestStateFamilies(t *testing.T) {
	tests := []struct {
		state        State
		running      bool
		stopped      bool
		failed       bool
		transitional bool
	}{
		{state: StateActive, running: true},
		{state: StateRunning, running: true},
		{state: StatePaused, stopped: true},
		{state: StateFailed, failed: true},
		{state: StateError, failed: true},
		{state: StateResuming, transitional: true},
		{state: StateStarting, transitional: true},
		{state: StatePreparingForRunning, transitional: true},
		{state: StatePausing, transitional: true},
		{state: StateScaling, transitional: true},
		{state: StateProvisioning, transitional: true},
		{state: StateUpdating, transitional: true},
		// a state this code has never seen belongs to no family
		{state: State("Hibernated")},
		{state: State("")},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsRunning(); got != tt.running {
				t.Errorf("IsRunning() = %v, want %v", got, tt.running)
			}
			if got := tt.state.IsStopped(); got != tt.stopped {
				t.Errorf("IsStopped() = %v, want %v", got, tt.stopped)
			}
			if got := tt.state.IsFailed(); got != tt.failed {
				t.Errorf("IsFailed() = %v, want %v", got, tt.failed)
			}
			if got := tt.state.IsTransitional(); got != tt.transitional {
				t.Errorf("IsTransitional() = %v, want %v", got, tt.transitional)
			}
		})
	}
}
