package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, organized
// by thread for later inspection. Intended for tests, debugging, and
// post-execution analysis; events are never evicted, so long-running
// production deployments should prefer a persistent backend.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// Filter selects events from a thread's history. All set fields must match
// (AND logic); zero values mean "no constraint".
type Filter struct {
	Node    string
	Msg     string
	MinWave *int
	MaxWave *int
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.Thread] = append(b.events[event.Thread], event)
}

// History returns all events for a thread in emission order.
func (b *BufferedEmitter) History(thread string) []Event {
	return b.HistoryWithFilter(thread, Filter{})
}

// HistoryWithFilter returns the thread's events matching the filter, in
// emission order. The returned slice is a copy.
func (b *BufferedEmitter) HistoryWithFilter(thread string, filter Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[thread] {
		if matches(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func matches(event Event, filter Filter) bool {
	if filter.Node != "" && event.Node != filter.Node {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinWave != nil && event.Wave < *filter.MinWave {
		return false
	}
	if filter.MaxWave != nil && event.Wave > *filter.MaxWave {
		return false
	}
	return true
}

// Clear removes stored events for a thread, or every thread when the
// argument is empty.
func (b *BufferedEmitter) Clear(thread string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if thread == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, thread)
}
