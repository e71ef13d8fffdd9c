package system

import (
	"math"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/scripting"
)

const (
	shipHullRadius = 60.0
	// impactMarkerLife keeps the one-shot explosion spawner around long
	// enough for the spawner chain to fire it.
	impactMarkerLife = 0.1
)

// HitRules decides impact damage and hull regeneration. *scripting.Engine
// implements it.
type HitRules interface {
	CalcProjectileHit(ctx scripting.HitContext) scripting.HitResult
	CalcHullRegen(hp, maxHP, dt float64) float64
}

type impact struct {
	projectile ecs.EntityID
	point      mgl64.Vec3
	explosion  string
}

type kill struct {
	ship    ecs.EntityID
	faction component.FactionID
	point   mgl64.Vec3
}

type shipTarget struct {
	id      ecs.EntityID
	pos     mgl64.Vec3
	faction component.FactionID
}

// RaycastSystem resolves projectile hits. Chain "Raycast": sweep every
// projectile's step against enemy hulls, apply damage through the scripted
// rules on the main goroutine, then a barrier turns impacts into explosions
// and removes the dead.
type RaycastSystem struct {
	bus   *event.Bus
	rules HitRules
	log   *zap.Logger

	ships   []shipTarget
	hits    []ecs.EntityID
	impacts []impact
	kills   []kill
	killed  map[ecs.EntityID]bool

	totalHits  int
	totalKills int
}

func NewRaycastSystem(bus *event.Bus, rules HitRules, log *zap.Logger) *RaycastSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &RaycastSystem{
		bus:    bus,
		rules:  rules,
		log:    log,
		killed: make(map[ecs.EntityID]bool),
	}
}

func (s *RaycastSystem) Name() string { return "Raycast" }

func (s *RaycastSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderRaycast, 0).
		AddWorkerTask(sched.Deps(
			sched.Write[component.RaycastResult](),
			sched.Read[component.MovementRaycast](),
			sched.Read[component.Position](),
			sched.Read[component.LastPosition](),
			sched.Read[component.Faction](),
			sched.Read[component.Spaceship](),
		), func(w *ecs.World) { s.sweep(w, secs) }).
		AddDedicatedTask(sched.Deps(
			sched.Read[component.RaycastResult](),
			sched.Read[component.Projectile](),
			sched.Read[component.Faction](),
			sched.Read[component.Spaceship](),
			sched.Write[component.Health](),
		), func(w *ecs.World) { s.applyHits(w, secs) }).
		AddBarrierTask(s.resolve).
		Finish())
}

func (s *RaycastSystem) sweep(w *ecs.World, dt float64) {
	s.ships = s.ships[:0]
	ecs.Each3(w, func(id ecs.EntityID, _ *component.Spaceship, p *component.Position, f *component.Faction) {
		s.ships = append(s.ships, shipTarget{id: id, pos: p.Pos, faction: f.Side})
	})
	factions := ecs.StoreOf[component.Faction](w)

	ecs.Each4(w, func(id ecs.EntityID, ray *component.MovementRaycast, res *component.RaycastResult, last *component.LastPosition, p *component.Position) {
		*res = component.RaycastResult{}
		side := component.FactionNeutral
		if f, ok := factions.Get(id); ok {
			side = f.Side
		}
		best := math.Inf(1)
		for _, t := range s.ships {
			if t.id == id || t.faction == side {
				continue
			}
			hit, ok := segmentSphere(last.Pos, p.Pos, t.pos, ray.Radius+shipHullRadius)
			if !ok || hit >= best {
				continue
			}
			best = hit
			res.Hit = true
			res.Target = t.id
			res.Point = last.Pos.Add(p.Pos.Sub(last.Pos).Mul(hit))
		}
		if res.Hit && dt > 0 {
			res.Speed = p.Pos.Sub(last.Pos).Len() / dt
		}
	})
}

func (s *RaycastSystem) applyHits(w *ecs.World, dt float64) {
	s.impacts = s.impacts[:0]
	s.kills = s.kills[:0]
	clear(s.killed)

	healths := ecs.StoreOf[component.Health](w)
	factions := ecs.StoreOf[component.Faction](w)

	ecs.Each2(w, func(_ ecs.EntityID, _ *component.Spaceship, h *component.Health) {
		h.HP += s.rules.CalcHullRegen(h.HP, h.MaxHP, dt)
	})

	s.hits = s.hits[:0]
	ecs.Each2(w, func(id ecs.EntityID, _ *component.Projectile, res *component.RaycastResult) {
		if res.Hit {
			s.hits = append(s.hits, id)
		}
	})
	// Lowest id first, so the same projectile always scores a contested kill.
	slices.Sort(s.hits)
	for _, id := range s.hits {
		pr, _ := ecs.Get[component.Projectile](w, id)
		res, _ := ecs.Get[component.RaycastResult](w, id)
		s.applyHit(id, pr, res, healths, factions)
	}
}

func (s *RaycastSystem) applyHit(id ecs.EntityID, pr *component.Projectile, res *component.RaycastResult,
	healths *ecs.Store[component.Health], factions *ecs.Store[component.Faction]) {
	s.impacts = append(s.impacts, impact{projectile: id, point: res.Point, explosion: pr.Explosion})
	h, ok := healths.Get(res.Target)
	if !ok || s.killed[res.Target] {
		return
	}
	own, other := component.FactionNeutral, component.FactionNeutral
	if f, ok := factions.Get(id); ok {
		own = f.Side
	}
	if f, ok := factions.Get(res.Target); ok {
		other = f.Side
	}
	out := s.rules.CalcProjectileHit(scripting.HitContext{
		BaseDamage:  pr.Damage,
		Speed:       res.Speed,
		TargetHP:    h.HP,
		TargetMaxHP: h.MaxHP,
		Friendly:    own == other && own != component.FactionNeutral,
	})
	h.HP -= out.Damage
	s.totalHits++
	event.Emit(s.bus, event.ProjectileHit{
		Projectile: id,
		Target:     res.Target,
		Damage:     out.Damage,
		Critical:   out.Critical,
		Point:      res.Point,
	})
	if out.Critical {
		s.log.Debug("critical hit",
			zap.Uint64("projectile", uint64(id)),
			zap.Uint64("target", uint64(res.Target)),
			zap.Float64("damage", out.Damage))
	}
	if h.HP <= 0 {
		s.killed[res.Target] = true
		s.kills = append(s.kills, kill{ship: res.Target, faction: other, point: res.Point})
	}
}

// resolve runs as a barrier: the world is quiescent and structural changes
// are applied before the chain ends.
func (s *RaycastSystem) resolve(w *ecs.World) {
	for _, im := range s.impacts {
		if im.explosion != "" {
			marker := w.CreateEntity()
			ecs.Add(w, marker, component.Position{Pos: im.point})
			ecs.Add(w, marker, component.Lifetime{LifeLeft: impactMarkerLife})
			ecs.Add(w, marker, component.ArchetypeSpawner{Archetype: im.explosion})
		}
		w.Destroy(im.projectile)
	}
	for _, k := range s.kills {
		event.Emit(s.bus, event.ShipDestroyed{Ship: k.ship, Faction: uint8(k.faction), Point: k.point})
		w.Destroy(k.ship)
		s.log.Debug("ship destroyed",
			zap.Uint64("ship", uint64(k.ship)),
			zap.Stringer("faction", k.faction))
	}
	s.totalKills += len(s.kills)
	w.Sync()
}

// Totals returns the number of damaging hits and kills so far.
func (s *RaycastSystem) Totals() (hits, kills int) { return s.totalHits, s.totalKills }
