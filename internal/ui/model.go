// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Shows source, position, volume and levels; keys map to player controls
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	volumeStep  = 5
	seekSeconds = 5.0
	meterFloor  = -60.0
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Source
	source   string
	format   string
	output   string
	position float64
	length   float64 // 0 when unknown

	// Playback
	state   string
	volume  int
	muted   bool
	looping bool
	paused  bool

	// Levels in dBFS
	peak float64
	rms  float64

	controls *Controls
	quitting bool
	width    int
}

// StatusMsg updates TUI state. Zero fields are left unchanged except where noted.
type StatusMsg struct {
	Source   string
	Format   string
	Output   string
	State    string
	Position *float64
	Length   float64
	Looping  *bool
	Peak     *float64
	RMS      *float64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StatusMsg:
		m.applyStatus(msg)
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping playback...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("mabridge player"))
	b.WriteString("\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s", name+":")))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	source := m.source
	if source == "" {
		source = "(none)"
	}
	field("Source", truncate(source, 48))
	field("Format", m.format)
	field("Output", m.output)

	state := m.state
	if m.paused {
		state = "paused"
	}
	if m.looping {
		state += " (looping)"
	}
	field("State", state)
	field("Position", formatPosition(m.position, m.length))

	muteIcon := ""
	if m.muted {
		muteIcon = " muted"
	}
	field("Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 20), m.volume, muteIcon))
	field("Peak", m.renderLevel(m.peak))
	field("RMS", m.renderLevel(m.rms))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  ←/→:Seek  space:Pause  m:Mute  l:Loop  q:Quit"))
	return b.String()
}

func (m Model) renderLevel(db float64) string {
	if math.IsInf(db, -1) || db < meterFloor {
		return fmt.Sprintf("[%s]   -inf dB", renderBar(0, 100, 20))
	}
	filled := int((db - meterFloor) / -meterFloor * 100)
	text := fmt.Sprintf("[%s] %6.1f dB", renderBar(filled, 100, 20), db)
	if db >= -0.1 {
		return hotStyle.Render(text)
	}
	return text
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume = min(100, m.volume+volumeStep)
		m.sendVolume()
	case "down":
		m.volume = max(0, m.volume-volumeStep)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "left":
		m.sendSeek(-seekSeconds)
	case "right":
		m.sendSeek(seekSeconds)
	case "l":
		m.looping = !m.looping
		if m.controls != nil {
			select {
			case m.controls.Loop <- m.looping:
			default:
			}
		}
	case " ":
		m.paused = !m.paused
		if m.controls != nil {
			select {
			case m.controls.Pause <- m.paused:
			default:
			}
		}
	}
	return m, nil
}

func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Volume <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

func (m Model) sendSeek(seconds float64) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Seek <- SeekMsg{Seconds: seconds}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.Format != "" {
		m.format = msg.Format
	}
	if msg.Output != "" {
		m.output = msg.Output
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Position != nil {
		m.position = *msg.Position
	}
	if msg.Length != 0 {
		m.length = msg.Length
	}
	if msg.Looping != nil {
		m.looping = *msg.Looping
	}
	if msg.Peak != nil {
		m.peak = *msg.Peak
	}
	if msg.RMS != nil {
		m.rms = *msg.RMS
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := max0(min(width, value*width/max))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatPosition(position, length float64) string {
	pos := formatSeconds(position)
	if length <= 0 {
		return pos + " / live"
	}
	return pos + " / " + formatSeconds(length)
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
