package events

import (
	"errors"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan StateChanged, 1)

	unsub := bus.Subscribe(func(e StateChanged) {
		received <- e
	})
	defer unsub()

	bus.Publish(StateChanged{
		Snapshot: Snapshot{Phase: "ready", Selection: Selection{Input: "Mic1"}},
	})

	select {
	case got := <-received:
		if got.Snapshot.Selection.Input != "Mic1" {
			t.Errorf("expected input Mic1, got %q", got.Snapshot.Selection.Input)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_RoutesByType(t *testing.T) {
	bus := New()
	notices := make(chan Notice, 1)
	states := make(chan StateChanged, 1)

	defer bus.Subscribe(func(e Notice) { notices <- e })()
	defer bus.Subscribe(func(e StateChanged) { states <- e })()

	boom := errors.New("boom")
	bus.Publish(Notice{Op: "start", Kind: NoticeCaptureStart, Err: boom})

	select {
	case n := <-notices:
		if n.Kind != NoticeCaptureStart || !errors.Is(n.Err, boom) {
			t.Errorf("unexpected notice: %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("notice not delivered")
	}

	select {
	case s := <-states:
		t.Errorf("state subscriber received a notice: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DevicesChanged, 1)

	unsub := bus.Subscribe(func(e DevicesChanged) {
		received <- e
	})
	unsub()

	bus.Publish(DevicesChanged{})

	select {
	case <-received:
		t.Error("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_NilAndUnknownHandlers(t *testing.T) {
	var nilBus *Bus
	nilBus.Publish(Notice{})
	nilBus.Subscribe(func(Notice) {})()

	bus := New()
	bus.Subscribe(func(string) {})()
}

func TestSelectionComplete(t *testing.T) {
	if (Selection{Input: "Mic1"}).Complete() {
		t.Error("selection with unset output must not be complete")
	}
	if !(Selection{Input: "Mic1", Output: "Speaker1"}).Complete() {
		t.Error("expected complete selection")
	}
}
