package engine

// EventKind tags one entry of the change-event stream. The names mirror the
// command protocol so reactive store layers can route on them directly.
type EventKind string

const (
	EventTrackCreated     EventKind = "track:created"
	EventTrackDeleted     EventKind = "track:deleted"
	EventTrackUpdated     EventKind = "track:updated"
	EventTrackReordered   EventKind = "track:reordered"
	EventTrackSelected    EventKind = "track:selected"
	EventTracksGrouped    EventKind = "track:grouped"
	EventTracksUngrouped  EventKind = "track:ungrouped"
	EventClipAdded        EventKind = "clip:added"
	EventClipRemoved      EventKind = "clip:removed"
	EventClipMoved        EventKind = "clip:moved"
	EventNotesChanged     EventKind = "notes:changed"
	EventEffectAdded      EventKind = "effect:added"
	EventEffectRemoved    EventKind = "effect:removed"
	EventEffectReordered  EventKind = "effect:reordered"
	EventEffectUpdated    EventKind = "effect:updated"
	EventTransportChanged EventKind = "transport:changed"
	EventProjectLoaded    EventKind = "project:loaded"
)

// Event is one structured change notification. Events are emitted after the
// mutation is applied to the in-memory model and are delivered to observers
// synchronously, in mutation order. The engine does not know or care how the
// observer renders them.
type Event struct {
	Kind     EventKind
	TrackID  string
	ClipID   string
	EffectID string
	Data     any
}

// Observer receives change events. Observers must not call back into the
// model from inside the callback.
type Observer func(Event)

type observerRegistry struct {
	nextID    int
	observers []registeredObserver
}

type registeredObserver struct {
	id int
	fn Observer
}

// subscribe registers fn and returns a function that unsubscribes it.
func (r *observerRegistry) subscribe(fn Observer) func() {
	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, registeredObserver{id: id, fn: fn})
	return func() {
		for i := range r.observers {
			if r.observers[i].id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *observerRegistry) emit(e Event) {
	for _, o := range r.observers {
		o.fn(e)
	}
}
