package slave

import (
	"sync"
	"testing"
)

func TestRing_FIFOAndDrop(t *testing.T) {
	r := NewRing(3, 8) // rounds up to 4

	for i := 0; i < 4; i++ {
		if !r.Put([]byte{byte(i)}) {
			t.Fatalf("put %d rejected", i)
		}
	}
	if r.Put([]byte{9}) {
		t.Fatalf("put into full ring accepted")
	}
	if r.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", r.Dropped())
	}

	var buf []byte
	for i := 0; i < 4; i++ {
		var ok bool
		buf, ok = r.Get(buf)
		if !ok || len(buf) != 1 || buf[0] != byte(i) {
			t.Fatalf("get %d: %v ok=%v", i, buf, ok)
		}
	}
	if _, ok := r.Get(buf); ok {
		t.Fatalf("get from empty ring succeeded")
	}
}

func TestRing_TruncatesToSlot(t *testing.T) {
	r := NewRing(2, 4)
	r.Put([]byte{1, 2, 3, 4, 5, 6})

	buf, ok := r.Get(nil)
	if !ok || len(buf) != 4 {
		t.Fatalf("expected 4 bytes, got %v", buf)
	}
}

func TestRing_ConcurrentProducerConsumer(t *testing.T) {
	const total = 10000
	r := NewRing(16, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Put([]byte{byte(i), byte(i >> 8)}) {
				i++
			}
		}
	}()

	var buf []byte
	for want := 0; want < total; {
		var ok bool
		buf, ok = r.Get(buf)
		if !ok {
			continue
		}
		got := int(buf[0]) | int(buf[1])<<8
		if got != want&0xFFFF {
			t.Fatalf("out of order: got %d want %d", got, want)
		}
		want++
	}
	wg.Wait()
}
