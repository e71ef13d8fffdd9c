package radar

import (
	"github.com/gdamore/tcell/v2"

	"github.com/starfall/battlesim/internal/component"
)

// BlipKind selects the glyph of a radar contact.
type BlipKind uint8

const (
	BlipShip BlipKind = iota
	BlipProjectile
	BlipExplosion
)

// Blip is one contact projected onto the radar plane (world X/Y).
type Blip struct {
	X, Y    float64
	Kind    BlipKind
	Faction component.FactionID
}

// View draws a top-down battle map into a tcell screen. The screen is not
// safe for concurrent use; draw only from a dedicated task.
type View struct {
	screen tcell.Screen
	scale  float64 // world units per column
}

// New wraps an initialised screen.
func New(screen tcell.Screen, scale float64) *View {
	if scale <= 0 {
		scale = 1
	}
	return &View{screen: screen, scale: scale}
}

// Open creates and initialises the terminal screen.
func Open(scale float64) (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return New(screen, scale), nil
}

// Project maps world coordinates to a cell. Rows are twice as tall as
// columns are wide, so Y is scaled by half. ok is false off screen; row 0 is
// reserved for the status line.
func (v *View) Project(x, y float64) (col, row int, ok bool) {
	w, h := v.screen.Size()
	col = w/2 + int(x/v.scale)
	row = h/2 - int(y/(v.scale*2))
	if col < 0 || col >= w || row < 1 || row >= h {
		return col, row, false
	}
	return col, row, true
}

// Draw renders one frame. Ships win over projectiles and explosions sharing
// a cell. Returns the number of contacts that landed on screen.
func (v *View) Draw(blips []Blip, status string) int {
	v.screen.Clear()
	drawn := 0
	for pass := BlipExplosion; ; pass-- {
		for _, b := range blips {
			if b.Kind != pass {
				continue
			}
			col, row, ok := v.Project(b.X, b.Y)
			if !ok {
				continue
			}
			v.screen.SetContent(col, row, glyph(b.Kind), nil, style(b))
			drawn++
		}
		if pass == BlipShip {
			break
		}
	}
	w, _ := v.screen.Size()
	for i, r := range []rune(status) {
		if i >= w {
			break
		}
		v.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
	}
	v.screen.Show()
	return drawn
}

// Close restores the terminal.
func (v *View) Close() {
	v.screen.Fini()
}

func glyph(k BlipKind) rune {
	switch k {
	case BlipShip:
		return '▲'
	case BlipProjectile:
		return '·'
	default:
		return '*'
	}
}

func style(b Blip) tcell.Style {
	if b.Kind == BlipExplosion {
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	}
	switch b.Faction {
	case component.FactionRed:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case component.FactionBlue:
		return tcell.StyleDefault.Foreground(tcell.ColorBlue)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
}
