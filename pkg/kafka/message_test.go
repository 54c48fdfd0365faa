package kafka

import (
	"testing"
)

func TestMessageBuilder_Build(t *testing.T) {
	payload := map[string]string{"to": "a@x.com"}

	msg, err := NewMessage().
		WithKey("a@x.com").
		WithValue(payload).
		WithEventType("verification_code").
		WithCorrelationID("req-1").
		WithSource("api").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if msg.Key != "a@x.com" {
		t.Errorf("Key = %q", msg.Key)
	}
	if msg.GetEventID() == "" {
		t.Error("expected a generated event id")
	}
	if msg.GetEventType() != "verification_code" {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-1" {
		t.Errorf("correlation id = %q", msg.GetCorrelationID())
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("expected timestamp header")
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if decoded["to"] != "a@x.com" {
		t.Errorf("decoded payload = %v", decoded)
	}
}

func TestMessageBuilder_EncodeFailure(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Fatal("expected an encoding error")
	}
}

func TestMessageBuilder_EmptyCorrelationIDIsOmitted(t *testing.T) {
	msg, err := NewMessage().WithKey("k").WithValue(1).WithCorrelationID("").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := msg.Headers[HeaderCorrelationID]; ok {
		t.Error("expected no correlation header")
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}

	if msg.GetRetryCount() != 0 {
		t.Fatalf("initial retry count = %d", msg.GetRetryCount())
	}

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}

	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("retry count = %d, want 12", got)
	}
	if msg.Headers[HeaderRetryCount] != "12" {
		t.Errorf("header = %q, want \"12\"", msg.Headers[HeaderRetryCount])
	}
}
