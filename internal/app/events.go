package app

import "sync"

// EventType identifies different session events.
type EventType int

const (
	EventInkChanged        EventType = iota // data: image.Rectangle dirty area
	EventBackgroundChanged                  // data: nil
	EventToolChanged                        // data: form.Markup
	EventDocumentChanged                    // data: nil
	EventPersisted                          // data: form.ScopeKey
	EventPersistFailed                      // data: error
	EventReset                              // data: nil
)

func (e EventType) String() string {
	switch e {
	case EventInkChanged:
		return "InkChanged"
	case EventBackgroundChanged:
		return "BackgroundChanged"
	case EventToolChanged:
		return "ToolChanged"
	case EventDocumentChanged:
		return "DocumentChanged"
	case EventPersisted:
		return "Persisted"
	case EventPersistFailed:
		return "PersistFailed"
	case EventReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type event struct {
	kind EventType
	data interface{}
}

// listeners is the registry behind Session.On and Session.Emit. It has its
// own lock so listeners may call back into the session.
type listeners struct {
	mu sync.RWMutex
	m  map[EventType][]EventListener
}

func (l *listeners) on(kind EventType, fn EventListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[EventType][]EventListener)
	}
	l.m[kind] = append(l.m[kind], fn)
}

func (l *listeners) emit(kind EventType, data interface{}) {
	l.mu.RLock()
	fns := l.m[kind]
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
}
