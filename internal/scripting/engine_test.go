package scripting

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	p := filepath.Join(dir, sub)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_ShippedScripts(t *testing.T) {
	e, err := NewEngine("../../scripts", zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	r := e.CalcProjectileHit(HitContext{BaseDamage: 20, Speed: 3000, TargetHP: 50, TargetMaxHP: 100})
	if r.Critical || math.Abs(r.Damage-20) > 1e-9 {
		t.Fatalf("normal hit = %+v", r)
	}
	r = e.CalcProjectileHit(HitContext{BaseDamage: 20, Speed: 3300, TargetHP: 50, TargetMaxHP: 100})
	if !r.Critical || r.Damage <= 40 {
		t.Fatalf("fast hit = %+v", r)
	}
	r = e.CalcProjectileHit(HitContext{BaseDamage: 20, Speed: 3000, Friendly: true})
	if r.Damage != 0 {
		t.Fatalf("friendly fire = %+v", r)
	}

	if got := e.CalcHullRegen(50, 100, 1); math.Abs(got-2) > 1e-9 {
		t.Fatalf("regen = %v, want 2", got)
	}
	if got := e.CalcHullRegen(10, 100, 1); got != 0 {
		t.Fatalf("regen below a quarter = %v", got)
	}
}

func TestEngine_CoreLoadsBeforeCombat(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "base.lua", "MULT = 3\n")
	writeScript(t, dir, "combat", "hit.lua", `
local m = MULT
function calc_projectile_hit(ctx)
  return { damage = ctx.base_damage * m, critical = true }
end
`)
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	r := e.CalcProjectileHit(HitContext{BaseDamage: 5})
	if r.Damage != 15 || !r.Critical {
		t.Fatalf("hit = %+v", r)
	}
}

func TestEngine_FallbacksWithoutScripts(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if r := e.CalcProjectileHit(HitContext{BaseDamage: 9}); r.Damage != 9 || r.Critical {
		t.Fatalf("fallback hit = %+v", r)
	}
	if got := e.CalcHullRegen(1, 2, 3); got != 0 {
		t.Fatalf("fallback regen = %v", got)
	}
}

func TestEngine_ScriptErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "broken.lua", "function (\n")
	if _, err := NewEngine(dir, zap.NewNop()); err == nil {
		t.Fatalf("syntax error not reported")
	}

	dir = t.TempDir()
	writeScript(t, dir, "combat", "bad.lua", `
function calc_projectile_hit(ctx) error("boom") end
function calc_hull_regen() return "x" .. nil end
`)
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if r := e.CalcProjectileHit(HitContext{BaseDamage: 4}); r.Damage != 4 {
		t.Fatalf("runtime error did not fall back: %+v", r)
	}
	if got := e.CalcHullRegen(1, 2, 3); got != 0 {
		t.Fatalf("runtime error regen = %v", got)
	}
}
