package mqtt

import (
	"github.com/cdleonard/numato-control/internal/logic"
)

// FakePublisher records everything the bridge sends so tests can inspect it.
// Payloads and SystemPayloads hold the encoded JSON, index-aligned with
// Events and SystemEvents.
type FakePublisher struct {
	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Handler is the command callback registered through Subscribe.
	Handler func(Command)

	// Injected failures. A failed call records nothing.
	PublishError       error
	PublishSystemError error
	SubscribeError     error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Subscribe(handler func(Command)) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Handler = handler
	return nil
}

// Deliver hands cmd to the subscribed handler as if it arrived from the broker.
func (f *FakePublisher) Deliver(cmd Command) {
	if f.Handler != nil {
		f.Handler(cmd)
	}
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool { return f.Connected }

// Reset drops all recorded state and injected errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
