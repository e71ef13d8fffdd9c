package component

import "github.com/go-gl/mathgl/mgl64"

// Spatial components. Pure data, zero methods: systems own all mutation.

type Position struct {
	Pos mgl64.Vec3
}

type Velocity struct {
	Vel mgl64.Vec3
}

// LastPosition is the position at the start of the current tick, kept for
// entities that sweep a ray along their movement.
type LastPosition struct {
	Pos mgl64.Vec3
}

type Rotation struct {
	Rot mgl64.Quat
}

type Scale struct {
	Scale mgl64.Vec3
}

// Movement opts an entity into velocity integration.
type Movement struct {
	GravityStrength float64
}

// GridMember puts an entity into the boid spatial grid.
type GridMember struct{}
