// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and the control channels
package ui

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(key(s))
	return next.(Model)
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // controls are optional for testing

	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}
	if model.muted {
		t.Error("expected muted to be false initially")
	}
	if model.state != "idle" {
		t.Errorf("expected state idle, got %q", model.state)
	}
}

func TestApplyStatus(t *testing.T) {
	model := NewModel(nil)

	pos := 12.5
	looping := true
	peak := -3.0
	model.applyStatus(StatusMsg{
		Source:   "song.flac",
		Format:   "s32 2ch 44100Hz",
		Output:   "malgo",
		State:    "playing",
		Position: &pos,
		Length:   180,
		Looping:  &looping,
		Peak:     &peak,
	})

	if model.source != "song.flac" || model.output != "malgo" || model.state != "playing" {
		t.Errorf("unexpected model after status: %+v", model)
	}
	if model.position != 12.5 || model.length != 180 {
		t.Errorf("expected position 12.5/180, got %v/%v", model.position, model.length)
	}
	if !model.looping {
		t.Error("expected looping after status update")
	}
	if model.peak != -3 {
		t.Errorf("expected peak -3, got %v", model.peak)
	}

	// Empty fields leave state unchanged
	model.applyStatus(StatusMsg{State: "stopped"})
	if model.source != "song.flac" || model.position != 12.5 {
		t.Error("partial status should not clear other fields")
	}
	if model.state != "stopped" {
		t.Errorf("expected state stopped, got %q", model.state)
	}
}

func TestVolumeKeys(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(ctrl)

	model = press(t, model, "down")
	if model.volume != 95 {
		t.Errorf("expected volume 95, got %d", model.volume)
	}
	if got := <-ctrl.Volume; got.Volume != 95 || got.Muted {
		t.Errorf("unexpected volume change %+v", got)
	}

	model = press(t, model, "up")
	model = press(t, model, "up")
	if model.volume != 100 {
		t.Errorf("expected volume clamped to 100, got %d", model.volume)
	}
	<-ctrl.Volume
	<-ctrl.Volume

	model = press(t, model, "m")
	if !model.muted {
		t.Error("expected muted after m")
	}
	if got := <-ctrl.Volume; !got.Muted {
		t.Error("expected mute to be sent")
	}
}

func TestSeekLoopPauseKeys(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(ctrl)

	model = press(t, model, "left")
	if got := <-ctrl.Seek; got.Seconds != -seekSeconds {
		t.Errorf("expected seek %v, got %v", -seekSeconds, got.Seconds)
	}
	model = press(t, model, "right")
	if got := <-ctrl.Seek; got.Seconds != seekSeconds {
		t.Errorf("expected seek %v, got %v", seekSeconds, got.Seconds)
	}

	model = press(t, model, "l")
	if !model.looping || !<-ctrl.Loop {
		t.Error("expected looping enabled")
	}

	model = press(t, model, " ")
	if !model.paused || !<-ctrl.Pause {
		t.Error("expected paused")
	}
}

func TestQuitKey(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(ctrl)

	next, cmd := model.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !next.(Model).quitting {
		t.Error("expected quitting after q")
	}
	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit to be sent")
	}
}

func TestKeysWithoutControls(t *testing.T) {
	model := NewModel(nil)
	for _, k := range []string{"up", "down", "m", "left", "l", " "} {
		model = press(t, model, k)
	}
	if model.volume != 95 {
		t.Errorf("expected volume 95, got %d", model.volume)
	}
}

func TestView(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Source: "tone", State: "playing"})

	view := model.View()
	for _, want := range []string{"tone", "playing", "live", "100%", "-inf"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	model.quitting = true
	if !strings.Contains(model.View(), "Stopping") {
		t.Error("expected stopping message when quitting")
	}
}

func TestRenderLevel(t *testing.T) {
	model := NewModel(nil)
	if !strings.Contains(model.renderLevel(math.Inf(-1)), "-inf") {
		t.Error("expected -inf for silence")
	}
	if !strings.Contains(model.renderLevel(-6), "-6.0 dB") {
		t.Errorf("unexpected level text %q", model.renderLevel(-6))
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{150, 100, 10, 10},
		{-5, 100, 10, 0},
	}
	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d): expected %d filled, got %d", tt.value, tt.filled, got)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != tt.width {
			t.Errorf("renderBar(%d): expected width %d, got %d", tt.value, tt.width, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short unchanged, got %q", got)
	}
	if got := truncate("a very long source name", 10); got != "a very ..." {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestFormatPosition(t *testing.T) {
	if got := formatPosition(65, 200); got != "1:05 / 3:20" {
		t.Errorf("unexpected position %q", got)
	}
	if got := formatPosition(3, 0); got != "0:03 / live" {
		t.Errorf("unexpected live position %q", got)
	}
}
