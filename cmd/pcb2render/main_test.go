package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/pcb2render/internal/config"
)

func TestDefaultOutput(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	cfg := config.Default()
	cfg.Boards = []config.BoardSpec{{Path: "/work/My Board v2.glb"}, {Path: "other.glb"}}

	got := defaultOutput(cfg, now)
	want := filepath.Join("output", "My_Board_v2_2024-03-09_14-05-07.png")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	cfg.Animate = true
	if got := defaultOutput(cfg, now); filepath.Ext(got) != ".mp4" {
		t.Errorf("Animated output should be .mp4, got %s", got)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if code := run([]string{"-view", "sideways", "board.glb"}); code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
	if code := run(nil); code != 2 {
		t.Errorf("Expected exit code 2 without boards, got %d", code)
	}
}
