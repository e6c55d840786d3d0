package core

import "sync"

type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		U32 [4]uint32
		I16 [8]int16
		U16 [8]uint16

		C [2]string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * u16 key_code = data.data.u16[0];
	 */
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released.
	/* Context usage:
	 * u16 key_code = data.data.u16[0];
	 */
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Mouse moved.
	/* Context usage:
	 * f64 x = data.data.f64[0];
	 * f64 y = data.data.f64[1];
	 */
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06

	// Framebuffer size changed. The renderer does not recreate its swapchain.
	/* Context usage:
	 * u32 width = data.data.u32[0];
	 * u32 height = data.data.u32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A watched shader asset changed on disk.
	/* Context usage:
	 * string path = data.data.c[0];
	 */
	EVENT_CODE_SHADER_CHANGED SystemEventCode = 0x10

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type postedEvent struct {
	code   SystemEventCode
	sender interface{}
	data   EventContext
}

// EventBus routes events to registered listeners. Register, Unregister, Fire
// and Dispatch belong to the main thread; Post may be called from any goroutine
// and is delivered on the next Dispatch.
type EventBus struct {
	registered map[SystemEventCode][]registeredEvent

	mu      sync.Mutex
	pending []postedEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]registeredEvent),
	}
}

// Register returns false when listener is already registered for code.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire delivers synchronously. If a handler returns true the event is
// considered handled and is not passed on to any more listeners.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, data EventContext) bool {
	for _, e := range b.registered[code] {
		if e.callback(code, sender, e.listener, data) {
			return true
		}
	}
	return false
}

func (b *EventBus) Post(code SystemEventCode, sender interface{}, data EventContext) {
	b.mu.Lock()
	b.pending = append(b.pending, postedEvent{code: code, sender: sender, data: data})
	b.mu.Unlock()
}

// Dispatch fires every posted event in posting order and returns how many were delivered.
func (b *EventBus) Dispatch() int {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, p := range pending {
		b.Fire(p.code, p.sender, p.data)
	}
	return len(pending)
}
