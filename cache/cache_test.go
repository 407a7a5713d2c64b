package cache

import (
	"bytes"
	"sync"
	"testing"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
)

func TestFindMissOnEmptyCache(t *testing.T) {
	c := New(8)
	if _, ok := c.Find(hash.New([]byte("x"))); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestInsertThenFind(t *testing.T) {
	c := New(8)
	h := hash.New([]byte("x"))

	c.Insert(h, fitness.Scalar(42))

	got, ok := c.Find(h)
	if !ok {
		t.Fatal("expected hit after insert")
	}
	if got.Compare(fitness.Scalar(42)) != 0 {
		t.Errorf("got %v, want 42", got)
	}
}

func TestClearInvalidatesEverything(t *testing.T) {
	c := New(8)
	h := hash.New([]byte("x"))
	c.Insert(h, fitness.Scalar(1))

	c.Clear()

	if _, ok := c.Find(h); ok {
		t.Error("expected miss after Clear")
	}

	// and it should still accept fresh inserts afterward
	c.Insert(h, fitness.Scalar(2))
	got, ok := c.Find(h)
	if !ok || got.Compare(fitness.Scalar(2)) != 0 {
		t.Error("cache unusable after Clear")
	}
}

func TestClearOneOnlyClearsThatHash(t *testing.T) {
	c := New(8)
	a := hash.New([]byte("a"))
	b := hash.New([]byte("b"))
	c.Insert(a, fitness.Scalar(1))
	c.Insert(b, fitness.Scalar(2))

	c.ClearOne(a)

	if _, ok := c.Find(a); ok {
		t.Error("expected a to be cleared")
	}
	if _, ok := c.Find(b); !ok {
		t.Error("b should be unaffected")
	}
}

func TestResizeDiscardsEntries(t *testing.T) {
	c := New(8)
	h := hash.New([]byte("x"))
	c.Insert(h, fitness.Scalar(1))

	c.Resize(10)

	if c.Bits() != 10 {
		t.Errorf("Bits() = %d, want 10", c.Bits())
	}
	if _, ok := c.Find(h); ok {
		t.Error("expected entries discarded by Resize")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New(8)
	h1 := hash.New([]byte("a"))
	h2 := hash.New([]byte("b"))
	c.Insert(h1, fitness.Scalar(1.5))
	c.Insert(h2, fitness.Scalar(-2.5))

	var buf bytes.Buffer
	if err := c.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := New(4)
	if err := restored.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got1, ok := restored.Find(h1)
	if !ok || got1.Compare(fitness.Scalar(1.5)) != 0 {
		t.Errorf("h1 round-trip mismatch: %v, ok=%v", got1, ok)
	}
	got2, ok := restored.Find(h2)
	if !ok || got2.Compare(fitness.Scalar(-2.5)) != 0 {
		t.Errorf("h2 round-trip mismatch: %v, ok=%v", got2, ok)
	}
}

func TestConcurrentInsertFind(t *testing.T) {
	c := New(10)
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := hash.New([]byte{byte(i)})
			c.Insert(h, fitness.Scalar(float64(i)))
			c.Find(h)
		}(i)
	}

	wg.Wait()
}
