// Package lifecycle defines the host application lifecycle signals and
// the resource conservation modes they map to.
package lifecycle

// Signal is a host application lifecycle event pushed by the platform.
type Signal string

const (
	// SignalResumed indicates the app returned to the foreground.
	SignalResumed Signal = "resumed"

	// SignalInactive indicates the app lost focus but stays visible.
	SignalInactive Signal = "inactive"

	// SignalPaused indicates the app moved to the background.
	SignalPaused Signal = "paused"

	// SignalDetached indicates the app is shutting down its view layer.
	SignalDetached Signal = "detached"

	// SignalHidden indicates the app window is no longer visible.
	SignalHidden Signal = "hidden"
)

// ResourceMode is a coarse hint describing how aggressively a server
// should conserve CPU, memory, and network.
type ResourceMode string

const (
	ResourceModeFull      ResourceMode = "full"
	ResourceModeReduced   ResourceMode = "reduced"
	ResourceModeMinimal   ResourceMode = "minimal"
	ResourceModeSuspended ResourceMode = "suspended"
)
