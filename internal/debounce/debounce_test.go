package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	values []string
	times  []time.Time
}

func (r *recorder) emit(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func TestDebouncer_CollapsesRapidInput(t *testing.T) {
	rec := &recorder{}
	d := New(50*time.Millisecond, rec.emit)
	defer d.Stop()

	d.Push("a")
	time.Sleep(10 * time.Millisecond)
	d.Push("ab")
	time.Sleep(10 * time.Millisecond)
	d.Push("abc")

	time.Sleep(150 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("emitted %d events (%v), want 1", len(got), got)
	}
	if got[0] != "abc" {
		t.Errorf("emitted %q, want %q", got[0], "abc")
	}
}

func TestDebouncer_EmptyBypassesDelay(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.emit)
	defer d.Stop()

	d.Push("naruto")
	d.Push("")

	// пустое значение эмитится синхронно внутри Push
	got := rec.snapshot()
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("emitted %v, want one empty value", got)
	}
	if _, armed := d.Pending(); armed {
		t.Error("pending value should be discarded by empty input")
	}
}

func TestDebouncer_BlankIsEmpty(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.emit)
	defer d.Stop()

	d.Push("   ")

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("emitted %v, want immediate emit for blank input", got)
	}
}

func TestDebouncer_SupersededValueNeverDelivered(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.emit)
	defer d.Stop()

	d.Push("one")
	d.Push("")
	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "" {
		t.Errorf("emitted %v, want only the empty value", got)
	}
}

func TestDebouncer_SeparateQuietPeriods(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.emit)
	defer d.Stop()

	d.Push("one")
	time.Sleep(70 * time.Millisecond)
	d.Push("two")
	time.Sleep(70 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("emitted %v, want [one two]", got)
	}
}

func TestDebouncer_WaitsForQuietPeriod(t *testing.T) {
	rec := &recorder{}
	delay := 40 * time.Millisecond
	d := New(delay, rec.emit)
	defer d.Stop()

	start := time.Now()
	d.Push("bebop")
	time.Sleep(120 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.times) != 1 {
		t.Fatalf("emitted %d events, want 1", len(rec.times))
	}
	if elapsed := rec.times[0].Sub(start); elapsed < delay {
		t.Errorf("emitted after %v, want >= %v", elapsed, delay)
	}
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.emit)

	d.Push("x")
	d.Cancel()
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("emitted %v after Cancel, want nothing", got)
	}

	d.Push("y")
	d.Stop()
	d.Push("z")
	d.Push("")
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("emitted %v after Stop, want nothing", got)
	}
}

func TestDebouncer_Pending(t *testing.T) {
	d := New(time.Hour, func(string) {})
	defer d.Stop()

	d.Push("one")
	d.Push("one piece")

	v, armed := d.Pending()
	if !armed || v != "one piece" {
		t.Errorf("Pending() = %q, %v; want %q, true", v, armed, "one piece")
	}
}
