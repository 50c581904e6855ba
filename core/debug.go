package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ConfigEvent captures a peripheral configuration change for post-mortem
// analysis
type ConfigEvent struct {
	Kind   uint8  // Event kind code
	Unit   uint8  // Peripheral unit number (timer 1, 3, ...)
	Value1 uint16 // Context-dependent value
	Value2 uint16 // Context-dependent value
}

// Event kind codes
const (
	EvtSetMode     = 1 // Timer mode changed
	EvtSetClock    = 2 // Timer clock source changed
	EvtSetTop      = 3 // TOP value written
	EvtTopRejected = 4 // TOP write refused by the active mode
	EvtSetPinMode  = 5 // Compare output mode changed
	EvtForceMatch  = 6 // Forced output compare
	EvtUSARTInit   = 7 // USART configured
	EvtExtIntType  = 8 // External interrupt sense changed
)

const (
	EventRingSize = 16 // Keep last 16 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Config event ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]ConfigEvent
	eventRingHead uint8
	eventsEnabled bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to a USART, a host log, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 8)
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordEvent captures a configuration event in the ring buffer
func RecordEvent(kind, unit uint8, value1, value2 uint16) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = ConfigEvent{
		Kind:   kind,
		Unit:   unit,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []ConfigEvent {
	var out []ConfigEvent
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Kind != 0 {
			out = append(out, evt)
		}
	}
	return out
}

// eventName returns the dump label for an event kind
func eventName(kind uint8) string {
	switch kind {
	case EvtSetMode:
		return "SET_MODE"
	case EvtSetClock:
		return "SET_CLOCK"
	case EvtSetTop:
		return "SET_TOP"
	case EvtTopRejected:
		return "TOP_REJECTED!"
	case EvtSetPinMode:
		return "SET_PIN_MODE"
	case EvtForceMatch:
		return "FORCE_MATCH"
	case EvtUSARTInit:
		return "USART_INIT"
	case EvtExtIntType:
		return "EXTINT_TYPE"
	}
	return "UNKNOWN"
}

// DumpEvents outputs the event ring buffer
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Config Event Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + eventName(evt.Kind) +
			" unit=" + itoa(int(evt.Unit)) +
			" v1=" + hex16(evt.Value1) +
			" v2=" + hex16(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = ConfigEvent{}
	}
	eventRingHead = 0
}
