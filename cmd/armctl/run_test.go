package main

import (
	"errors"
	"testing"

	"github.com/gwillem/armctl/pkg/monitor"
	"github.com/gwillem/armctl/pkg/robot"
)

func TestBehaviorRoles(t *testing.T) {
	want := map[string]robot.Role{
		"out-of-view": robot.Spectator,
		"standby":     robot.Player,
		"pick":        robot.Player,
		"place":       robot.Player,
	}
	if len(behaviors) != len(want) {
		t.Fatalf("got %d behaviors, want %d", len(behaviors), len(want))
	}
	for name, role := range want {
		if b, ok := behaviors[name]; !ok || b.role != role {
			t.Errorf("behavior %q role = %v (ok %v), want %v", name, b.role, ok, role)
		}
	}
}

func TestLimbFor(t *testing.T) {
	cfg := robot.DefaultConfig()
	cfg.Player.Limb = robot.Right
	cfg.Spectator.Limb = robot.Left

	if got := limbFor(cfg, robot.Player); got != robot.Right {
		t.Errorf("limbFor(player) = %s, want right", got)
	}
	if got := limbFor(cfg, robot.Spectator); got != robot.Left {
		t.Errorf("limbFor(spectator) = %s, want left", got)
	}
}

func TestRunModel_Done(t *testing.T) {
	m := initialRunModel(monitor.New(monitor.Config{}), "test")

	next, _ := m.Update(doneMsg{err: errors.New("lift token: goal not reached")})
	rm := next.(runModel)
	if !rm.done || rm.err == nil {
		t.Fatalf("done=%v err=%v", rm.done, rm.err)
	}
	if len(rm.logs) != 1 {
		t.Errorf("logs = %q, want the failure logged", rm.logs)
	}
}

func TestClampChart(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-0.1, 0},
		{0.2, 0.2},
		{2, chartMaxMeters},
	}
	for _, tt := range tests {
		if got := clampChart(tt.in); got != tt.want {
			t.Errorf("clampChart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
