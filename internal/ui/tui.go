// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it drives the player through
package ui

import (
	"math"

	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries user actions from the TUI to the player
type Controls struct {
	Volume chan VolumeChangeMsg
	Seek   chan SeekMsg
	Loop   chan bool
	Pause  chan bool
	Quit   chan QuitMsg
}

// VolumeChangeMsg requests a new volume and mute state
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// SeekMsg requests a relative seek in seconds
type SeekMsg struct {
	Seconds float64
}

// QuitMsg requests shutdown
type QuitMsg struct{}

// NewControls creates the control channels
func NewControls() *Controls {
	return &Controls{
		Volume: make(chan VolumeChangeMsg, 10),
		Seek:   make(chan SeekMsg, 10),
		Loop:   make(chan bool, 1),
		Pause:  make(chan bool, 1),
		Quit:   make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls) Model {
	return Model{
		volume:   100,
		state:    "idle",
		peak:     math.Inf(-1),
		rms:      math.Inf(-1),
		controls: ctrl,
	}
}

// Run creates the TUI program. The caller runs it and feeds it StatusMsg updates.
func Run(ctrl *Controls) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}
