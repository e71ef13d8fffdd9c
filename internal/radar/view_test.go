package radar

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/starfall/battlesim/internal/component"
)

func newSimView(t *testing.T, scale float64) (*View, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return New(screen, scale), screen
}

func TestView_Project(t *testing.T) {
	v, _ := newSimView(t, 100)
	col, row, ok := v.Project(0, 0)
	if !ok || col != 40 || row != 12 {
		t.Fatalf("origin -> %d,%d %v", col, row, ok)
	}
	col, row, ok = v.Project(1000, 400)
	if !ok || col != 50 || row != 10 {
		t.Fatalf("(1000,400) -> %d,%d %v", col, row, ok)
	}
	if _, _, ok := v.Project(100000, 0); ok {
		t.Fatalf("far contact reported on screen")
	}
	if _, _, ok := v.Project(0, 2400); ok {
		t.Fatalf("contact on the status row reported on screen")
	}
}

func TestView_DrawShipsOverProjectiles(t *testing.T) {
	v, screen := newSimView(t, 100)
	blips := []Blip{
		{X: 0, Y: 0, Kind: BlipProjectile, Faction: component.FactionBlue},
		{X: 0, Y: 0, Kind: BlipShip, Faction: component.FactionRed},
		{X: 500, Y: 0, Kind: BlipExplosion},
		{X: 1e9, Y: 0, Kind: BlipShip},
	}
	if n := v.Draw(blips, "tick 1"); n != 3 {
		t.Fatalf("drawn = %d, want 3", n)
	}

	r, _, st, _ := screen.GetContent(40, 12)
	if r != '▲' {
		t.Fatalf("origin glyph = %q, want ship", r)
	}
	if fg, _, _ := st.Decompose(); fg != tcell.ColorRed {
		t.Fatalf("ship colour = %v", fg)
	}
	if r, _, _, _ := screen.GetContent(45, 12); r != '*' {
		t.Fatalf("explosion glyph = %q", r)
	}
	if r, _, _, _ := screen.GetContent(0, 0); r != 't' {
		t.Fatalf("status line = %q", r)
	}
}
