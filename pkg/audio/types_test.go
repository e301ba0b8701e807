// ABOUTME: Tests for scalar sample conversions
// ABOUTME: Covers 16-bit, packed 24-bit and float conversions plus stream format JSON
package audio

import (
	"encoding/json"
	"testing"
)

func TestInt16Conversions(t *testing.T) {
	tests := []struct {
		name string
		in   int16
		wide int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 25600},
		{"negative", -100, -25600},
		{"max", 32767, 8388352},
		{"min", -32768, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleFromInt16(tt.in); got != tt.wide {
				t.Errorf("SampleFromInt16(%d): expected %d, got %d", tt.in, tt.wide, got)
			}
			if got := SampleToInt16(tt.wide); got != tt.in {
				t.Errorf("SampleToInt16(%d): expected %d, got %d", tt.wide, tt.in, got)
			}
		})
	}

	// Low bits are truncated toward negative infinity
	if got := SampleToInt16(-1000000); got != -3907 {
		t.Errorf("expected -3907, got %d", got)
	}
}

func TestPacked24Bit(t *testing.T) {
	tests := []struct {
		name   string
		sample int32
		packed [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
		{"max", Max24Bit, [3]byte{0xFF, 0xFF, 0x7F}},
		{"min", Min24Bit, [3]byte{0x00, 0x00, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleTo24Bit(tt.sample); got != tt.packed {
				t.Errorf("SampleTo24Bit: expected %v, got %v", tt.packed, got)
			}
			if got := SampleFrom24Bit(tt.packed); got != tt.sample {
				t.Errorf("SampleFrom24Bit: expected %d, got %d", tt.sample, got)
			}
		})
	}
}

func TestFloatConversions(t *testing.T) {
	tests := []struct {
		in   float32
		want int32
	}{
		{0, 0},
		{0.5, 4194304},
		{-0.5, -4194304},
		{1, Max24Bit},
		{-1, Min24Bit},
		{1.5, Max24Bit},
		{-7, Min24Bit},
	}
	for _, tt := range tests {
		if got := FloatToSample(tt.in); got != tt.want {
			t.Errorf("FloatToSample(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}

	if got := SampleToFloat(4194304); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := SampleToFloat(Min24Bit); got != -1 {
		t.Errorf("expected -1, got %v", got)
	}
	if got := SampleToFloat(FloatToSample(0.25)); got != 0.25 {
		t.Errorf("expected 0.25 to survive a round trip, got %v", got)
	}
}

func TestClip(t *testing.T) {
	for in, want := range map[float32]float32{2: 1, -2: -1, 0.3: 0.3} {
		if got := clip(in); got != want {
			t.Errorf("clip(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestStreamFormatJSON(t *testing.T) {
	data, err := json.Marshal(StreamFormat{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"codec":"pcm","sample_rate":48000,"channels":2,"bit_depth":24}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
