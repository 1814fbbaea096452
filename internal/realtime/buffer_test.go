package realtime

import (
	"testing"
)

func TestBuffer_FIFO(t *testing.T) {
	b := newGrowableBuffer[int](8)

	for i := 1; i <= 5; i++ {
		if !b.send(i) {
			t.Fatalf("send(%d) returned false", i)
		}
	}
	if b.length() != 5 {
		t.Errorf("length = %d, want 5", b.length())
	}

	for i := 1; i <= 5; i++ {
		got, ok := b.tryReceive()
		if !ok {
			t.Fatalf("tryReceive #%d returned no item", i)
		}
		if got != i {
			t.Errorf("item #%d = %d, want %d", i, got, i)
		}
	}

	if _, ok := b.tryReceive(); ok {
		t.Error("tryReceive on empty buffer returned an item")
	}
}

func TestBuffer_Growth(t *testing.T) {
	b := newGrowableBuffer[int](4)

	for i := 0; i < 100; i++ {
		if !b.send(i) {
			t.Fatalf("send(%d) returned false", i)
		}
	}

	stats := b.stats()
	if stats.Capacity <= 4 {
		t.Errorf("capacity = %d, expected growth from 4", stats.Capacity)
	}
	if stats.ResizeCount == 0 {
		t.Error("expected buffer to have resized")
	}
	if stats.TotalIn != 100 {
		t.Errorf("TotalIn = %d, want 100", stats.TotalIn)
	}

	// Order survives growth.
	for i := 0; i < 100; i++ {
		got, ok := b.tryReceive()
		if !ok {
			t.Fatalf("tryReceive #%d returned no item", i)
		}
		if got != i {
			t.Fatalf("item #%d = %d, want %d", i, got, i)
		}
	}
}

func TestBuffer_GrowthWrapped(t *testing.T) {
	b := newGrowableBuffer[int](10)

	// Advance head so the ring wraps before growing.
	for i := 0; i < 5; i++ {
		b.send(i)
	}
	for i := 0; i < 5; i++ {
		b.tryReceive()
	}
	for i := 0; i < 30; i++ {
		b.send(100 + i)
	}

	for i := 0; i < 30; i++ {
		got, ok := b.tryReceive()
		if !ok {
			t.Fatalf("tryReceive #%d returned no item", i)
		}
		if got != 100+i {
			t.Fatalf("item #%d = %d, want %d", i, got, 100+i)
		}
	}
}

func TestBuffer_CloseDrains(t *testing.T) {
	b := newGrowableBuffer[string](8)
	b.send("a")
	b.send("b")
	b.close()

	if b.send("c") {
		t.Error("send after close returned true")
	}

	got, ok := b.receive()
	if !ok || got != "a" {
		t.Errorf("receive = %q, %v, want \"a\", true", got, ok)
	}
	got, ok = b.receive()
	if !ok || got != "b" {
		t.Errorf("receive = %q, %v, want \"b\", true", got, ok)
	}
	if _, ok := b.receive(); ok {
		t.Error("receive on closed empty buffer returned an item")
	}
}

func TestBuffer_ReceiveBlocksUntilSend(t *testing.T) {
	b := newGrowableBuffer[int](4)

	got := make(chan int, 1)
	go func() {
		v, ok := b.receive()
		if ok {
			got <- v
		}
	}()

	b.send(42)
	if v := <-got; v != 42 {
		t.Errorf("received %d, want 42", v)
	}
}

func TestBuffer_CloseUnblocksReceiver(t *testing.T) {
	b := newGrowableBuffer[int](4)

	done := make(chan bool, 1)
	go func() {
		_, ok := b.receive()
		done <- ok
	}()

	b.close()
	if ok := <-done; ok {
		t.Error("receive after close on empty buffer reported an item")
	}
}
