package main

import (
	"testing"

	"github.com/park285/chess-assistant-bot/internal/service/assistant"
)

func TestConsoleEvent(t *testing.T) {
	cases := []struct {
		line string
		kind assistant.EventKind
		text string
	}{
		{"e4", assistant.EventText, "e4"},
		{"/cb turn_white", assistant.EventCallback, "turn_white"},
		{"/photo", assistant.EventPhoto, ""},
		{"/start", assistant.EventText, "/start"},
	}
	for _, tc := range cases {
		ev := consoleEvent("u1", tc.line)
		if ev.Kind != tc.kind || ev.Text != tc.text || ev.UserID != "u1" {
			t.Fatalf("consoleEvent(%q) = %+v", tc.line, ev)
		}
	}
}
