package system

import (
	"math"
	"runtime"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

const (
	gridCellSize    = 500.0
	boidCheckRadius = 1000.0
	boidTargetPull  = 500.0
	boidChunk       = 64
	boidChainWeight = 3
	boidsChainName  = "Boids"
)

type cellKey [3]int

type gridItem struct {
	id      ecs.EntityID
	pos     mgl64.Vec3
	faction component.FactionID
	ship    bool
}

type boid struct {
	pos     mgl64.Vec3
	faction component.FactionID
	vel     *mgl64.Vec3
	ship    *component.Spaceship
	proj    *component.Projectile
}

// BoidSystem steers ships (separation from allies, pull towards target) and
// projectiles (homing on enemies) using a uniform spatial grid. Chain
// "Boids": rebuild the grid, then update every velocity in parallel.
type BoidSystem struct {
	grid  map[cellKey][]gridItem
	boids []boid
	limit int
}

func NewBoidSystem() *BoidSystem {
	return &BoidSystem{
		grid:  make(map[cellKey][]gridItem, 256),
		limit: runtime.GOMAXPROCS(0),
	}
}

func (s *BoidSystem) Name() string { return boidsChainName }

func (s *BoidSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderBoids, boidChainWeight).
		AddWorkerTask(sched.Deps(
			sched.Read[component.Position](),
			sched.Read[component.Faction](),
			sched.Read[component.Spaceship](),
			sched.Write[component.GridMember](),
		), s.updateGrid).
		AddWorkerTask(sched.Deps(
			sched.Write[component.Velocity](),
			sched.Read[component.GridMember](),
			sched.Read[component.Spaceship](),
			sched.Read[component.Projectile](),
			sched.Read[component.Position](),
			sched.Read[component.Faction](),
		), func(w *ecs.World) { s.updateBoids(w, secs) }).
		Finish())
}

func cellOf(p mgl64.Vec3) cellKey {
	return cellKey{
		int(math.Floor(p[0] / gridCellSize)),
		int(math.Floor(p[1] / gridCellSize)),
		int(math.Floor(p[2] / gridCellSize)),
	}
}

func (s *BoidSystem) updateGrid(w *ecs.World) {
	for k, items := range s.grid {
		s.grid[k] = items[:0]
	}
	factions := ecs.StoreOf[component.Faction](w)
	ships := ecs.StoreOf[component.Spaceship](w)
	ecs.Each2(w, func(id ecs.EntityID, _ *component.GridMember, p *component.Position) {
		item := gridItem{id: id, pos: p.Pos, faction: component.FactionNeutral, ship: ships.Has(id)}
		if f, ok := factions.Get(id); ok {
			item.faction = f.Side
		}
		k := cellOf(p.Pos)
		s.grid[k] = append(s.grid[k], item)
	})
}

// eachInRadius visits every grid item strictly within radius of origin.
func (s *BoidSystem) eachInRadius(origin mgl64.Vec3, radius float64, fn func(gridItem)) {
	r := mgl64.Vec3{radius, radius, radius}
	lo, hi := cellOf(origin.Sub(r)), cellOf(origin.Add(r))
	r2 := radius * radius
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				for _, it := range s.grid[cellKey{x, y, z}] {
					if it.pos.Sub(origin).LenSqr() < r2 {
						fn(it)
					}
				}
			}
		}
	}
}

func (s *BoidSystem) updateBoids(w *ecs.World, dt float64) {
	s.boids = s.boids[:0]
	factions := ecs.StoreOf[component.Faction](w)
	side := func(id ecs.EntityID) component.FactionID {
		if f, ok := factions.Get(id); ok {
			return f.Side
		}
		return component.FactionNeutral
	}
	ecs.Each3(w, func(id ecs.EntityID, pr *component.Projectile, p *component.Position, v *component.Velocity) {
		s.boids = append(s.boids, boid{pos: p.Pos, faction: side(id), vel: &v.Vel, proj: pr})
	})
	ecs.Each3(w, func(id ecs.EntityID, sh *component.Spaceship, p *component.Position, v *component.Velocity) {
		s.boids = append(s.boids, boid{pos: p.Pos, faction: side(id), vel: &v.Vel, ship: sh})
	})

	// Every boid owns its velocity and only reads the grid, so chunks are
	// independent.
	var g errgroup.Group
	g.SetLimit(s.limit)
	for start := 0; start < len(s.boids); start += boidChunk {
		end := min(start+boidChunk, len(s.boids))
		chunk := s.boids[start:end]
		g.Go(func() error {
			for i := range chunk {
				if chunk[i].proj != nil {
					s.steerProjectile(&chunk[i], dt)
				} else {
					s.steerShip(&chunk[i], dt)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *BoidSystem) steerProjectile(b *boid, dt float64) {
	vel := *b.vel
	s.eachInRadius(b.pos, boidCheckRadius, func(it gridItem) {
		if !it.ship || it.faction == b.faction {
			return
		}
		d2 := it.pos.Sub(b.pos).LenSqr()
		strength := clamp(1-d2/(boidCheckRadius*boidCheckRadius), 0.1, 1) * dt
		vel = vel.Add(safeNormal(it.pos.Sub(b.pos)).Mul(b.proj.HeatSeekStrength * strength))
	})
	*b.vel = clampLen(vel, b.proj.MaxVelocity)
}

func (s *BoidSystem) steerShip(b *boid, dt float64) {
	vel := *b.vel
	s.eachInRadius(b.pos, boidCheckRadius, func(it gridItem) {
		if !it.ship || it.faction != b.faction || it.pos == b.pos {
			return
		}
		d2 := it.pos.Sub(b.pos).LenSqr()
		strength := clamp(1-d2/(boidCheckRadius*boidCheckRadius), 0.1, 1) * dt
		vel = vel.Add(safeNormal(b.pos.Sub(it.pos)).Mul(b.ship.AvoidanceStrength * strength))
	})
	toTarget := safeNormal(b.ship.Target.Sub(b.pos))
	vel = vel.Add(toTarget.Mul(boidTargetPull * dt))
	*b.vel = clampLen(vel, b.ship.MaxVelocity)
}

// GridCells returns the number of occupied grid cells after the last update.
func (s *BoidSystem) GridCells() int {
	n := 0
	for _, items := range s.grid {
		if len(items) > 0 {
			n++
		}
	}
	return n
}
