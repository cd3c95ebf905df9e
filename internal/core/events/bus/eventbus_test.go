package bus

import (
	"errors"
	"testing"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	got := 0
	_, err := b.Subscribe("avatar.moved", func(e Event) error {
		got = e.Data.(int)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("avatar.moved", "tester", 123)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got != 123 {
		t.Fatalf("handler not called with payload: %d", got)
	}
}

func TestHandlerErrorsReachPublisher(t *testing.T) {
	b := New()
	handlerErr := errors.New("fail")
	_, err := b.Subscribe("x", func(e Event) error { return handlerErr })
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if err = b.Publish(NewEvent("x", "src", nil)); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	count1 := 0
	count2 := 0
	_, _ = b.SubscribeTopic("dr", "ev", func(e Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("mk", "ev", func(e Event) error { count2++; return nil })
	_ = b.PublishToTopic("dr", NewEvent("ev", "src", nil))
	if count1 != 1 || count2 != 0 {
		t.Fatalf("topic isolation failed: %d %d", count1, count2)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("ev", func(e Event) error { count++; return nil })
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	_ = b.Publish(NewEvent("ev", "src", nil))
	if err = b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = b.Publish(NewEvent("ev", "src", nil))
	if count != 1 {
		t.Fatalf("expected one delivery, got %d", count)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active after cancel")
	}
}
