package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu  sync.Mutex
	got []string
	ch  chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 16)} }

func (r *recorder) record(v string) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestDebouncerDeliversOnlyTrailingValue(t *testing.T) {
	rec := newRecorder()
	d := New(50*time.Millisecond, rec.record)
	for _, v := range []string{"c", "co", "cof", "coffee"} {
		d.Trigger(v)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-rec.ch:
	case <-time.After(time.Second):
		t.Fatal("debounced action never ran")
	}
	time.Sleep(100 * time.Millisecond)

	got := rec.values()
	if len(got) != 1 || got[0] != "coffee" {
		t.Fatalf("got %v, want [coffee]", got)
	}
}

func TestDebouncerSeparateBursts(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.record)

	d.Trigger("a")
	<-rec.ch
	d.Trigger("b")
	<-rec.ch

	got := rec.values()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.record)
	d.Trigger("x")
	d.Stop()
	d.Trigger("y")
	time.Sleep(60 * time.Millisecond)
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("stopped debouncer delivered %v", got)
	}
	if d.Pending() {
		t.Fatal("stopped debouncer reports pending work")
	}
}

func TestDebouncerFlush(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.record)
	d.Trigger("now")
	if !d.Pending() {
		t.Fatal("expected pending action")
	}
	d.Flush()
	if got := rec.values(); len(got) != 1 || got[0] != "now" {
		t.Fatalf("got %v", got)
	}
	d.Flush()
	if got := rec.values(); len(got) != 1 {
		t.Fatalf("second flush delivered again: %v", got)
	}
}

func TestSequencer(t *testing.T) {
	var s Sequencer
	first := s.Next()
	second := s.Next()
	if second <= first {
		t.Fatalf("tokens not increasing: %d then %d", first, second)
	}
	if s.IsLatest(first) {
		t.Fatal("older token reported as latest")
	}
	if !s.IsLatest(second) {
		t.Fatal("newest token not reported as latest")
	}
}
