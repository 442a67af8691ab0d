package dedup

import (
	"fmt"
	"testing"
)

func TestSeenAfterMark(t *testing.T) {
	c := New(10)
	if c.Seen("a") {
		t.Errorf("unmarked id reported seen")
	}
	c.Mark("a")
	if !c.Seen("a") {
		t.Errorf("marked id not reported seen")
	}
	c.Mark("a") // re-mark is a no-op
	if c.Len() != 1 {
		t.Errorf("Len = %d after duplicate mark, want 1", c.Len())
	}
}

func TestBoundNeverExceeded(t *testing.T) {
	const bound = 50
	c := New(bound)
	for i := 0; i < 500; i++ {
		c.Mark(fmt.Sprintf("msg-%03d", i))
		if c.Len() > bound {
			t.Fatalf("cache size %d exceeds bound %d after insert %d", c.Len(), bound, i)
		}
	}
	if c.Len() != bound {
		t.Errorf("Len = %d, want full bound %d", c.Len(), bound)
	}
}

func TestFIFOEviction(t *testing.T) {
	c := New(3)
	c.Mark("a")
	c.Mark("b")
	c.Mark("c")
	c.Mark("d") // evicts a
	if c.Seen("a") {
		t.Errorf("oldest entry survived eviction")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !c.Seen(id) {
			t.Errorf("recent entry %q evicted", id)
		}
	}
}

func TestTinyCapacity(t *testing.T) {
	c := New(0) // clamped to 1
	c.Mark("a")
	c.Mark("b")
	if c.Len() != 1 || !c.Seen("b") || c.Seen("a") {
		t.Errorf("capacity-1 cache should hold only the newest id")
	}
}
