package kernel

import "testing"

func TestStateMaskSetClearTest(t *testing.T) {
	var m stateMask
	if m.test(3) {
		t.Fatal("zero-value mask should have no bits set")
	}
	m.set(3)
	if !m.test(3) {
		t.Fatal("expected bit 3 set")
	}
	m.clear(3)
	if m.test(3) {
		t.Fatal("expected bit 3 cleared")
	}
}

func TestStateMaskPopcount(t *testing.T) {
	var m stateMask
	for _, id := range []int{0, 1, 4, 63} {
		m.set(id)
	}
	if got := m.popcount(); got != 4 {
		t.Fatalf("popcount = %d, want 4", got)
	}
}

func TestStateMaskLowestHighest(t *testing.T) {
	var m stateMask
	if _, ok := m.lowest(); ok {
		t.Fatal("lowest on empty mask should report ok=false")
	}
	if _, ok := m.highest(); ok {
		t.Fatal("highest on empty mask should report ok=false")
	}

	m.set(2)
	m.set(5)
	m.set(9)
	if id, ok := m.lowest(); !ok || id != 2 {
		t.Fatalf("lowest = (%d, %v), want (2, true)", id, ok)
	}
	if id, ok := m.highest(); !ok || id != 9 {
		t.Fatalf("highest = (%d, %v), want (9, true)", id, ok)
	}
}

func TestStateMaskNextAfterWraps(t *testing.T) {
	var m stateMask
	m.set(1)
	m.set(6)

	if id, ok := m.nextAfter(6, 8); !ok || id != 1 {
		t.Fatalf("nextAfter(6, 8) = (%d, %v), want (1, true) after wrapping", id, ok)
	}
	if id, ok := m.nextAfter(1, 8); !ok || id != 6 {
		t.Fatalf("nextAfter(1, 8) = (%d, %v), want (6, true)", id, ok)
	}

	var empty stateMask
	if _, ok := empty.nextAfter(0, 8); ok {
		t.Fatal("nextAfter on an empty mask should report ok=false")
	}
}

// TestMasksMoveIsDisjoint exercises §3's pairwise-disjointness invariant
// directly on the masks type: a thread id may appear in exactly one of the
// five masks after every move.
func TestMasksMoveIsDisjoint(t *testing.T) {
	var ms masks
	const id = 4

	ms.new.set(id)
	ms.move(id, &ms.new, &ms.ready)
	assertExactlyOneMask(t, &ms, id, &ms.ready)

	ms.move(id, &ms.ready, &ms.running)
	assertExactlyOneMask(t, &ms, id, &ms.running)

	ms.move(id, &ms.running, &ms.sleep)
	assertExactlyOneMask(t, &ms, id, &ms.sleep)

	ms.move(id, &ms.sleep, &ms.paused)
	assertExactlyOneMask(t, &ms, id, &ms.paused)
}

func assertExactlyOneMask(t *testing.T, ms *masks, id int, want *stateMask) {
	t.Helper()
	all := []*stateMask{&ms.new, &ms.ready, &ms.running, &ms.sleep, &ms.paused}
	count := 0
	for _, m := range all {
		if m.test(id) {
			count++
			if m != want {
				t.Errorf("thread %d unexpectedly set in an unwanted mask", id)
			}
		}
	}
	if count != 1 {
		t.Fatalf("thread %d set in %d masks, want exactly 1", id, count)
	}
}
