package ecs

import (
	"sync"
	"testing"
)

type testPos struct{ X, Y int }
type testVel struct{ DX, DY int }
type testTag struct{}

func newTestWorld() *World {
	w := NewWorld()
	Register[testPos](w)
	Register[testVel](w)
	Register[testTag](w)
	return w
}

func TestEntityPool_GenerationInvalidatesStaleIDs(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	if a.IsZero() {
		t.Fatalf("first entity must not be the zero id")
	}
	if !p.Destroy(a) {
		t.Fatalf("destroy of live id failed")
	}
	if p.Alive(a) {
		t.Fatalf("destroyed id still alive")
	}
	b := p.Create()
	if b.Index() != a.Index() {
		t.Fatalf("free list not reused: %d vs %d", b.Index(), a.Index())
	}
	if b.Generation() == a.Generation() {
		t.Fatalf("generation not bumped")
	}
	if p.Destroy(a) {
		t.Fatalf("stale id destroyed a live entity")
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestKeyOf_StableAndDistinct(t *testing.T) {
	if KeyOf[testPos]() != KeyOf[testPos]() {
		t.Fatalf("key not stable")
	}
	if KeyOf[testPos]() == KeyOf[testVel]() {
		t.Fatalf("distinct types share a key")
	}
}

func TestRegister_Idempotent(t *testing.T) {
	w := NewWorld()
	a := Register[testPos](w)
	b := Register[testPos](w)
	if a != b {
		t.Fatalf("second Register returned a new store")
	}
	if w.Registry().Len() != 1 {
		t.Fatalf("registry len = %d", w.Registry().Len())
	}
}

func TestWorld_ImmediateMutation(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()
	Add(w, e, testPos{X: 1})
	p, ok := Get[testPos](w, e)
	if !ok || p.X != 1 {
		t.Fatalf("Get after Add = %v, %v", p, ok)
	}
	Remove[testPos](w, e)
	if Has[testPos](w, e) {
		t.Fatalf("component still present after Remove")
	}
	Add(w, e, testVel{DX: 2})
	w.Destroy(e)
	if w.Alive(e) || Has[testVel](w, e) {
		t.Fatalf("Destroy left data behind")
	}
}

func TestWorld_DeferredBracket(t *testing.T) {
	w := newTestWorld()
	keep := w.CreateEntity()
	Add(w, keep, testPos{X: 5})

	w.BeginDeferred()
	e := w.CreateEntity()
	Add(w, e, testPos{X: 7})
	w.Destroy(keep)

	if Has[testPos](w, e) {
		t.Fatalf("deferred Add applied early")
	}
	if !w.Alive(keep) {
		t.Fatalf("deferred Destroy applied early")
	}
	if w.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", w.Pending())
	}

	w.BeginDeferred()
	w.EndDeferred()
	if Has[testPos](w, e) {
		t.Fatalf("inner EndDeferred flushed the queue")
	}

	w.EndDeferred()
	if !Has[testPos](w, e) {
		t.Fatalf("Add not applied at EndDeferred")
	}
	if w.Alive(keep) {
		t.Fatalf("Destroy not applied at EndDeferred")
	}
}

func TestWorld_ConcurrentDeferredAdds(t *testing.T) {
	w := newTestWorld()
	w.BeginDeferred()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				e := w.CreateEntity()
				Add(w, e, testTag{})
			}
		}()
	}
	wg.Wait()
	w.EndDeferred()

	if n := StoreOf[testTag](w).Len(); n != 800 {
		t.Fatalf("tag count = %d, want 800", n)
	}
	if w.Len() != 800 {
		t.Fatalf("entity count = %d, want 800", w.Len())
	}
}

func TestEach_Queries(t *testing.T) {
	w := newTestWorld()
	for i := 0; i < 10; i++ {
		e := w.CreateEntity()
		Add(w, e, testPos{X: i})
		if i%2 == 0 {
			Add(w, e, testVel{DX: 1})
		}
		if i%4 == 0 {
			Add(w, e, testTag{})
		}
	}

	n2 := 0
	Each2(w, func(_ EntityID, p *testPos, v *testVel) {
		p.X += v.DX
		n2++
	})
	if n2 != 5 {
		t.Fatalf("Each2 visited %d, want 5", n2)
	}

	n3 := 0
	Each3(w, func(_ EntityID, _ *testTag, _ *testPos, _ *testVel) { n3++ })
	if n3 != 3 {
		t.Fatalf("Each3 visited %d, want 3", n3)
	}
}
