package engine

// State is one of the Recording Engine's states (spec §4.1).
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateSplitting State = "splitting"
	StateStopping  State = "stopping"
	StateFailed    State = "failed"
)

// Event names a state-machine transition trigger.
type Event string

const (
	EventStart                  Event = "start"
	EventDeviceReady            Event = "device_ready"
	EventPause                  Event = "pause"
	EventResume                 Event = "resume"
	EventSplitTrigger           Event = "split_trigger"
	EventSegmentFinalized       Event = "segment_finalized"
	EventStop                   Event = "stop"
	EventFinalSegmentFinalized  Event = "final_segment_finalized"
	EventError                  Event = "error"
	EventCleanup                Event = "cleanup"
	EventRecover                Event = "recover"
)

// transition is one edge of the state-machine table, adapted in spirit
// from ManuGH-xg2g's generic internal/pipeline/fsm.Machine[S,E] but
// narrowed to this package's own closed State/Event enums -- the
// teacher's own concurrency code (internal/service/recording.go) uses
// plain fields and switches rather than a generic engine, so the table
// here stays a small explicit map rather than a reusable generic type.
type transition struct {
	from State
	on   Event
	to   State
}

// table enumerates every legal edge; any state on EventError unconditionally
// transitions to Failed (handled separately in Next, not listed here).
var table = []transition{
	{StateIdle, EventStart, StateStarting},
	{StateStarting, EventDeviceReady, StateRecording},
	{StateRecording, EventPause, StatePaused},
	{StatePaused, EventResume, StateRecording},
	{StateRecording, EventSplitTrigger, StateSplitting},
	{StateSplitting, EventSegmentFinalized, StateRecording},
	{StateRecording, EventStop, StateStopping},
	{StatePaused, EventStop, StateStopping},
	{StateStopping, EventFinalSegmentFinalized, StateIdle},
	{StateFailed, EventCleanup, StateIdle},
	{StateIdle, EventRecover, StateRecording},
}

var index = func() map[State]map[Event]State {
	m := make(map[State]map[Event]State, len(table))
	for _, t := range table {
		if m[t.from] == nil {
			m[t.from] = make(map[Event]State)
		}
		m[t.from][t.on] = t.to
	}
	return m
}()

// Next returns the resulting state from firing event in from, or ok=false
// if the transition is illegal (spec §7: ErrIllegalTransition).
func Next(from State, event Event) (State, bool) {
	if event == EventError {
		return StateFailed, true
	}
	byEvent, ok := index[from]
	if !ok {
		return "", false
	}
	to, ok := byEvent[event]
	return to, ok
}
