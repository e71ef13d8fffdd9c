package system

import (
	"fmt"
	"time"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/radar"
)

// RadarSystem draws a top-down plot of the battle into a terminal. The
// screen is not safe for concurrent use, so drawing is a dedicated task.
type RadarSystem struct {
	view    *radar.View
	refresh int
	ticks   uint64
	blips   []radar.Blip
	drawn   int
}

func NewRadarSystem(view *radar.View, refresh int) *RadarSystem {
	if refresh <= 0 {
		refresh = 1
	}
	return &RadarSystem{view: view, refresh: refresh}
}

func (s *RadarSystem) Name() string { return "Radar" }

func (s *RadarSystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	s.ticks++
	if (s.ticks-1)%uint64(s.refresh) != 0 {
		return
	}
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderRadar, 0).
		AddDedicatedTask(sched.Deps(
			sched.Read[component.Position](),
			sched.Read[component.Faction](),
			sched.Read[component.Spaceship](),
			sched.Read[component.Projectile](),
			sched.Read[component.Explosion](),
		), s.draw).
		Finish())
}

func (s *RadarSystem) draw(w *ecs.World) {
	s.blips = s.blips[:0]
	var ships [component.FactionNeutral + 1]int
	factions := ecs.StoreOf[component.Faction](w)
	side := func(id ecs.EntityID) component.FactionID {
		if f, ok := factions.Get(id); ok {
			return f.Side
		}
		return component.FactionNeutral
	}
	ecs.Each2(w, func(id ecs.EntityID, _ *component.Spaceship, p *component.Position) {
		f := side(id)
		ships[f]++
		s.blips = append(s.blips, radar.Blip{X: p.Pos[0], Y: p.Pos[1], Kind: radar.BlipShip, Faction: f})
	})
	ecs.Each2(w, func(id ecs.EntityID, _ *component.Projectile, p *component.Position) {
		s.blips = append(s.blips, radar.Blip{X: p.Pos[0], Y: p.Pos[1], Kind: radar.BlipProjectile, Faction: side(id)})
	})
	ecs.Each2(w, func(_ ecs.EntityID, _ *component.Explosion, p *component.Position) {
		s.blips = append(s.blips, radar.Blip{X: p.Pos[0], Y: p.Pos[1], Kind: radar.BlipExplosion, Faction: component.FactionNeutral})
	})
	status := fmt.Sprintf("tick %d  red %d  blue %d  contacts %d",
		s.ticks, ships[component.FactionRed], ships[component.FactionBlue], len(s.blips))
	s.drawn = s.view.Draw(s.blips, status)
}

// Drawn returns the number of blips on screen after the last redraw.
func (s *RadarSystem) Drawn() int { return s.drawn }
