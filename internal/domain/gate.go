package domain

import "time"

type GateMode string

const (
	GatePaused             GateMode = "paused"
	GateEnabled            GateMode = "enabled"
	GatePermanentlyEnabled GateMode = "permanently_enabled"
)

// GateState is the singleton transferability switch. PermanentlyEnabled is
// absorbing: no transition leaves it.
type GateState struct {
	Mode      GateMode
	EnabledAt *time.Time
	UpdatedAt time.Time
}

// Transferable reports whether the global mode permits movement. Per-holder
// freeze flags are checked separately; both must clear.
func (g GateState) Transferable() bool {
	return g.Mode != GatePaused
}
