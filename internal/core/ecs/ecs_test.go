package ecs

import (
	"sort"
	"testing"
)

type testPosition struct{ X, Y float32 }
type testVelocity struct{ X, Y float32 }
type testTag struct{}

func setupWorld(_ *testing.T) (*World, *Store[testPosition], *Store[testVelocity], *Store[testTag]) {
	w := NewWorld()
	pos := NewStore[testPosition]()
	vel := NewStore[testVelocity]()
	tag := NewStore[testTag]()
	w.Registry().Register("position", pos)
	w.Registry().Register("velocity", vel)
	w.Registry().Register("tag", tag)
	return w, pos, vel, tag
}

func TestPoolGenerations(t *testing.T) {
	p := NewPool()
	e1 := p.Create()
	if e1.IsZero() {
		t.Fatal("expected non-zero entity")
	}
	if e1.Index() != 0 || e1.Generation() != 1 {
		t.Errorf("expected index 0 generation 1, got %d/%d", e1.Index(), e1.Generation())
	}
	if !p.Destroy(e1) {
		t.Fatal("expected destroy to succeed")
	}
	if p.Destroy(e1) {
		t.Error("expected second destroy of a stale entity to fail")
	}
	e2 := p.Create()
	if e2.Index() != e1.Index() {
		t.Errorf("expected slot reuse, got index %d", e2.Index())
	}
	if e2 == e1 {
		t.Error("expected a fresh identifier after slot reuse")
	}
	if p.Alive(e1) {
		t.Error("stale entity reported alive")
	}
	if !p.Alive(e2) {
		t.Error("fresh entity reported dead")
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 live entity, got %d", p.Len())
	}
	if p.Alive(NewEntity(99, 1)) {
		t.Error("unknown entity reported alive")
	}
}

func TestStoreSwapRemove(t *testing.T) {
	w, pos, _, _ := setupWorld(t)
	var ids []Entity
	for i := 0; i < 5; i++ {
		e := w.CreateEntity()
		pos.Set(e, &testPosition{X: float32(i)})
		ids = append(ids, e)
	}
	if !pos.Remove(ids[1]) {
		t.Fatal("expected remove to succeed")
	}
	if pos.Remove(ids[1]) {
		t.Error("expected double remove to fail")
	}
	if pos.Len() != 4 {
		t.Fatalf("expected 4 components, got %d", pos.Len())
	}
	for i, e := range ids {
		p, ok := pos.Get(e)
		if i == 1 {
			if ok {
				t.Error("removed component still present")
			}
			continue
		}
		if !ok || p.X != float32(i) {
			t.Errorf("entity %d: expected X=%d, got %+v (ok=%v)", i, i, p, ok)
		}
	}
}

func TestStoreIgnoresStaleGeneration(t *testing.T) {
	w, pos, _, _ := setupWorld(t)
	e := w.CreateEntity()
	pos.Set(e, &testPosition{X: 1})
	w.Destroy(e)
	e2 := w.CreateEntity()
	if _, ok := pos.Get(e); ok {
		t.Error("stale entity resolved a component")
	}
	if _, ok := pos.Get(e2); ok {
		t.Error("recycled slot inherited a component")
	}
}

func TestEachIntersection(t *testing.T) {
	w, pos, vel, tag := setupWorld(t)
	var both, all []Entity
	for i := 0; i < 20; i++ {
		e := w.CreateEntity()
		pos.Set(e, &testPosition{})
		if i%2 == 0 {
			vel.Set(e, &testVelocity{})
			both = append(both, e)
			if i%4 == 0 {
				tag.Set(e, &testTag{})
				all = append(all, e)
			}
		}
	}

	var got2 []Entity
	Each2(pos, vel, func(e Entity, _ *testPosition, _ *testVelocity) { got2 = append(got2, e) })
	assertSameEntities(t, both, got2)

	var got2Rev []Entity
	Each2(vel, pos, func(e Entity, _ *testVelocity, _ *testPosition) { got2Rev = append(got2Rev, e) })
	assertSameEntities(t, both, got2Rev)

	var got3 []Entity
	Each3(pos, vel, tag, func(e Entity, _ *testPosition, _ *testVelocity, _ *testTag) { got3 = append(got3, e) })
	assertSameEntities(t, all, got3)
}

func TestDestroyQueue(t *testing.T) {
	w, pos, vel, _ := setupWorld(t)
	e := w.CreateEntity()
	pos.Set(e, &testPosition{})
	vel.Set(e, &testVelocity{})
	if got := w.Registry().Components(e); len(got) != 2 {
		t.Errorf("expected 2 components, got %v", got)
	}

	w.MarkForDestruction(e)
	w.MarkForDestruction(e)
	if !w.Alive(e) {
		t.Fatal("entity destroyed before flush")
	}
	destroyed := w.FlushDestroyQueue()
	if len(destroyed) != 1 || destroyed[0] != e {
		t.Errorf("expected [%d], got %v", e, destroyed)
	}
	if w.Alive(e) || pos.Has(e) || vel.Has(e) {
		t.Error("entity or components survived flush")
	}
}

func assertSameEntities(t *testing.T, want, got []Entity) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("expected %d entities, got %d", len(want), len(got))
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("entity %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}
