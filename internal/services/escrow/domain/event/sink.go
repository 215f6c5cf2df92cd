package event

// Sink receives events after the operation that produced them committed.
// Delivery is best effort.
type Sink interface {
	Publish(evt Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(evt Event)

// Publish implements Sink for SinkFunc.
func (fn SinkFunc) Publish(evt Event) {
	fn(evt)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Fanout delivers each event to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return SinkFunc(func(evt Event) {
		for _, sink := range filtered {
			sink.Publish(evt)
		}
	})
}
