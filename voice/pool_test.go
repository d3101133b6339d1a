package voice

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"go-sonify/failure"
)

type call struct {
	op   string
	slot int
	arg  string
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *recorder) Attack(slot int, pitch, velocity float64) {
	r.add(call{"attack", slot, fmt.Sprint(pitch)})
}
func (r *recorder) Release(slot int) { r.add(call{"release", slot, ""}) }
func (r *recorder) SetParameter(slot int, name string, value float64) {
	r.add(call{"param", slot, name})
}
func (r *recorder) Connect(stage string)    { r.add(call{"connect", -1, stage}) }
func (r *recorder) Disconnect(stage string) { r.add(call{"disconnect", -1, stage}) }

func (r *recorder) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

type events struct {
	started, updated, released []Voice
}

func (e *events) VoiceStarted(v Voice)  { e.started = append(e.started, v) }
func (e *events) VoiceUpdated(v Voice)  { e.updated = append(e.updated, v) }
func (e *events) VoiceReleased(v Voice) { e.released = append(e.released, v) }

func newPool(t *testing.T, size int, mode Mode, opts ...Option) (*Pool, *recorder) {
	t.Helper()
	rec := &recorder{}
	p, err := NewPool(size, mode, rec, opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return p, rec
}

func TestNewPoolRejectsZero(t *testing.T) {
	_, err := NewPool(0, Shared, &recorder{})
	if !errors.Is(err, ErrPoolSize) || !failure.Is(err, failure.KindConfiguration) {
		t.Fatalf("err = %v, want configuration ErrPoolSize", err)
	}
}

func TestAllocateTwiceSameSlotOneAttack(t *testing.T) {
	p, rec := newPool(t, 4, Dedicated)

	a, err := p.Allocate(Touch(1), Params{Pitch: 440, Velocity: 1})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := p.Allocate(Touch(1), Params{Pitch: 880, Velocity: 1})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if a != b {
		t.Fatalf("slots %d and %d differ", a, b)
	}
	if n := rec.count("attack"); n != 1 {
		t.Fatalf("attacks = %d, want 1", n)
	}
}

func TestReleaseUnboundIsNoop(t *testing.T) {
	p, rec := newPool(t, 2, Dedicated)
	if p.Release(Key(3)) {
		t.Fatalf("Release of unbound id reported true")
	}
	if len(rec.calls) != 0 {
		t.Fatalf("engine saw %d calls", len(rec.calls))
	}
}

func TestReleaseThenReleaseOnce(t *testing.T) {
	p, rec := newPool(t, 2, Dedicated)
	p.Allocate(Key(0), Params{Pitch: 261})
	p.Release(Key(0))
	p.Release(Key(0))
	if n := rec.count("release"); n != 1 {
		t.Fatalf("releases = %d, want 1", n)
	}
}

func TestDedicatedExhaustion(t *testing.T) {
	p, _ := newPool(t, 2, Dedicated)
	p.Allocate(Touch(0), Params{})
	p.Allocate(Touch(1), Params{})

	_, err := p.Allocate(Touch(2), Params{})
	if !errors.Is(err, ErrNoFreeVoice) {
		t.Fatalf("err = %v, want ErrNoFreeVoice", err)
	}
	if !failure.Is(err, failure.KindConfiguration) {
		t.Fatalf("exhaustion should be a configuration error")
	}

	p.Release(Touch(0))
	if _, err := p.Allocate(Touch(2), Params{}); err != nil {
		t.Fatalf("Allocate after release: %v", err)
	}
}

func TestSharedRoundRobin(t *testing.T) {
	p, _ := newPool(t, 3, Shared)
	for i := 0; i < 3; i++ {
		slot, err := p.Allocate(Region(i), Params{})
		if err != nil {
			t.Fatalf("Allocate(%d): %v", i, err)
		}
		if slot != i%3 {
			t.Fatalf("region %d got slot %d", i, slot)
		}
	}
}

func TestSharedStealsLeastRecentlyTriggered(t *testing.T) {
	ev := &events{}
	p, rec := newPool(t, 3, Shared, WithListener(ev))
	for i := 0; i < 3; i++ {
		p.Allocate(Region(i), Params{})
	}

	// region 4 prefers slot 1; slot 0 is the oldest
	slot, err := p.Allocate(Region(4), Params{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if slot != 0 {
		t.Fatalf("stole slot %d, want 0", slot)
	}
	if _, ok := p.Lookup(Region(0)); ok {
		t.Fatalf("region 0 still bound after steal")
	}
	if n := rec.count("release"); n != 1 {
		t.Fatalf("releases = %d, want 1", n)
	}
	if len(ev.released) != 1 || ev.released[0].ID != Region(0) {
		t.Fatalf("released events = %+v", ev.released)
	}

	// next steal takes slot 1
	slot, _ = p.Allocate(Region(5), Params{})
	if slot != 1 {
		t.Fatalf("second steal took slot %d, want 1", slot)
	}
}

func TestSharedUsesFreeSlotBeforeStealing(t *testing.T) {
	p, rec := newPool(t, 3, Shared)
	p.Allocate(Region(0), Params{})
	slot, _ := p.Allocate(Region(3), Params{})
	if slot == 0 {
		t.Fatalf("stole a bound slot while others were free")
	}
	if rec.count("release") != 0 {
		t.Fatalf("unexpected release")
	}
}

func TestUpdate(t *testing.T) {
	ev := &events{}
	p, rec := newPool(t, 2, Dedicated, WithListener(ev))
	if p.Update(Touch(0), -3, 2) {
		t.Fatalf("Update of unbound id reported true")
	}
	p.Allocate(Touch(0), Params{Volume: 0, Modulation: 1})
	if !p.Update(Touch(0), -3, 2) {
		t.Fatalf("Update of bound id reported false")
	}
	v, _ := p.Lookup(Touch(0))
	if v.Volume != -3 || v.Modulation != 2 {
		t.Fatalf("voice = %+v", v)
	}
	if rec.count("attack") != 1 {
		t.Fatalf("Update retriggered the voice")
	}
	if len(ev.updated) != 1 {
		t.Fatalf("updated events = %d", len(ev.updated))
	}
}

func TestAllocateSetsParamsBeforeAttack(t *testing.T) {
	p, rec := newPool(t, 1, Dedicated)
	p.Allocate(Key(0), Params{Pitch: 440, Volume: -6, Modulation: 3})
	last := rec.calls[len(rec.calls)-1]
	if last.op != "attack" {
		t.Fatalf("last call %q, want attack", last.op)
	}
}

func TestReleaseAllIdempotent(t *testing.T) {
	p, rec := newPool(t, 4, Shared)
	for i := 0; i < 3; i++ {
		p.Allocate(Key(i), Params{})
	}
	if n := p.ReleaseAll(); n != 3 {
		t.Fatalf("ReleaseAll = %d, want 3", n)
	}
	if n := p.ReleaseAll(); n != 0 {
		t.Fatalf("second ReleaseAll = %d, want 0", n)
	}
	if rec.count("release") != 3 || p.Active() != 0 {
		t.Fatalf("releases = %d active = %d", rec.count("release"), p.Active())
	}
}

func TestCloseRejectsAllocate(t *testing.T) {
	p, _ := newPool(t, 2, Dedicated)
	p.Allocate(Touch(0), Params{})
	p.Close()
	if p.Active() != 0 {
		t.Fatalf("Close left voices bound")
	}
	if _, err := p.Allocate(Touch(1), Params{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestConcurrentDistinctIDs(t *testing.T) {
	const n = 16
	p, rec := newPool(t, n, Dedicated)

	var wg sync.WaitGroup
	slots := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot, err := p.Allocate(Touch(i), Params{})
			if err != nil {
				t.Errorf("Allocate(%d): %v", i, err)
			}
			slots[i] = slot
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, s := range slots {
		if seen[s] {
			t.Fatalf("slot %d bound twice", s)
		}
		seen[s] = true
	}
	if rec.count("attack") != n {
		t.Fatalf("attacks = %d, want %d", rec.count("attack"), n)
	}
}

func TestIDString(t *testing.T) {
	if got := Touch(3).String(); got != "touch:3" {
		t.Fatalf("Touch(3) = %q", got)
	}
}
