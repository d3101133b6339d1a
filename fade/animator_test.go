package fade

import (
	"sync"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

type recorder struct {
	mu     sync.Mutex
	writes map[int][]colorful.Color
}

func newRecorder() *recorder {
	return &recorder{writes: make(map[int][]colorful.Color)}
}

func (r *recorder) SetCellColor(cell int, c colorful.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[cell] = append(r.writes[cell], c)
}

func (r *recorder) get(cell int) []colorful.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]colorful.Color(nil), r.writes[cell]...)
}

var red = colorful.Color{R: 1}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestFadeReachesRest(t *testing.T) {
	rec := newRecorder()
	a := New(rec, colorful.Color{}, WithTiming(10*time.Millisecond, time.Millisecond))
	defer a.Close()

	a.Start(3, red)
	waitFor(t, func() bool { return a.Pending() == 0 })

	writes := rec.get(3)
	if len(writes) == 0 {
		t.Fatalf("no writes")
	}
	last := writes[len(writes)-1]
	if last != (colorful.Color{}) {
		t.Fatalf("final color = %v, want black", last)
	}
	for i := 1; i < len(writes); i++ {
		if writes[i].R > writes[i-1].R {
			t.Fatalf("fade brightened at step %d", i)
		}
	}
}

func TestCancelStopsWrites(t *testing.T) {
	rec := newRecorder()
	a := New(rec, colorful.Color{}, WithTiming(time.Hour, time.Millisecond))
	defer a.Close()

	a.Start(1, red)
	waitFor(t, func() bool { return len(rec.get(1)) > 0 })

	if !a.Cancel(1) {
		t.Fatalf("Cancel reported no running fade")
	}
	n := len(rec.get(1))
	time.Sleep(10 * time.Millisecond)
	if got := len(rec.get(1)); got != n {
		t.Fatalf("cancelled fade wrote %d more times", got-n)
	}
	if a.Cancel(1) {
		t.Fatalf("second Cancel reported a running fade")
	}
}

func TestRestartReplacesFade(t *testing.T) {
	rec := newRecorder()
	a := New(rec, colorful.Color{}, WithTiming(time.Hour, time.Millisecond))
	defer a.Close()

	a.Start(2, red)
	a.Start(2, red)
	if got := a.Pending(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	rec := newRecorder()
	a := New(rec, colorful.Color{}, WithTiming(time.Hour, time.Millisecond))
	for cell := 0; cell < 5; cell++ {
		a.Start(cell, red)
	}
	a.Close()
	if a.Pending() != 0 {
		t.Fatalf("pending after Close = %d", a.Pending())
	}
	a.Start(9, red)
	if a.Pending() != 0 {
		t.Fatalf("Start after Close scheduled a fade")
	}
}
