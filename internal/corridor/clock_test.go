package corridor

import (
	"testing"
	"time"
)

func TestFakeClockFiresInOrder(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var fired []string
	clock.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clock.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	clock.Advance(90 * time.Second)

	want := []string{"a", "b", "c"}
	if len(fired) != len(want) {
		t.Fatalf("fired %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired %v, want %v", fired, want)
		}
	}
}

func TestFakeClockAdvancePartial(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var count int
	clock.AfterFunc(5*time.Second, func() { count++ })

	clock.Advance(4 * time.Second)
	if count != 0 {
		t.Fatal("timer fired early")
	}
	if got := clock.Now(); !got.Equal(time.Unix(4, 0)) {
		t.Fatalf("Now() = %v, want t=4", got)
	}
	clock.Advance(1 * time.Second)
	if count != 1 {
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeClockNestedScheduling(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var at []time.Time
	clock.AfterFunc(1*time.Second, func() {
		at = append(at, clock.Now())
		clock.AfterFunc(2*time.Second, func() {
			at = append(at, clock.Now())
		})
	})

	clock.Advance(10 * time.Second)

	if len(at) != 2 {
		t.Fatalf("got %d firings, want 2", len(at))
	}
	if !at[0].Equal(time.Unix(1, 0)) || !at[1].Equal(time.Unix(3, 0)) {
		t.Errorf("firing times = %v, want [t=1, t=3]", at)
	}
}

func TestFakeClockStop(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var fired bool
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("first Stop() should return true")
	}
	if timer.Stop() {
		t.Error("second Stop() should return false")
	}

	clock.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}
