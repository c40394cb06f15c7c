package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrompter_AskSeason(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		season int
		ok     bool
	}{
		{name: "valid", input: "3\n", season: 3, ok: true},
		{name: "padded", input: "  7 \r\n", season: 7, ok: true},
		{name: "upper bound", input: "10\n", season: 10, ok: true},
		{name: "no trailing newline", input: "5", season: 5, ok: true},
		{name: "zero", input: "0\n"},
		{name: "above range", input: "11\n"},
		{name: "negative", input: "-2\n"},
		{name: "not a number", input: "three\n"},
		{name: "empty line", input: "\n"},
		{name: "no input", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			season, ok, err := p.AskSeason(10)
			if err != nil {
				t.Fatalf("AskSeason() returned error: %v", err)
			}
			if ok != tt.ok || season != tt.season {
				t.Errorf("AskSeason() = (%d, %v), want (%d, %v)", season, ok, tt.season, tt.ok)
			}
			if out.String() != "Which season to download (1-10)? " {
				t.Errorf("unexpected prompt: %q", out.String())
			}
		})
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{" y \n", true},
		{"n\n", false},
		{"yes\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompter(strings.NewReader(tt.input), &out)

		got, err := p.Confirm()
		if err != nil {
			t.Fatalf("Confirm(%q) returned error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Proceed? (y/n): " {
			t.Errorf("unexpected prompt: %q", out.String())
		}
	}
}

func TestPrompter_SequentialQuestions(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("2\ny\n"), &out)

	season, ok, err := p.AskSeason(10)
	if err != nil || !ok || season != 2 {
		t.Fatalf("AskSeason() = (%d, %v, %v)", season, ok, err)
	}
	proceed, err := p.Confirm()
	if err != nil || !proceed {
		t.Fatalf("Confirm() = (%v, %v)", proceed, err)
	}
}
