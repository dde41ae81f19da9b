package coordinator

// Phase is a step of the fetch lifecycle:
// idle → fetching → {published | superseded | failed} → idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhasePublished
	PhaseSuperseded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhasePublished:
		return "published"
	case PhaseSuperseded:
		return "superseded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts fetch lifecycles. Every accepted fetch ends up in exactly one
// of Published, Superseded or Failed.
type Stats struct {
	Accepted   uint64
	Published  uint64
	Superseded uint64
	Failed     uint64
	Cleared    uint64
}
