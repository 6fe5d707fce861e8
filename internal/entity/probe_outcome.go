package entity

// OutcomeKind classifies the result of a single availability probe.
type OutcomeKind int

const (
	OutcomeScrapeError OutcomeKind = iota
	OutcomeIndeterminate
	OutcomeUnavailable
	OutcomeAvailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAvailable:
		return "available"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeIndeterminate:
		return "indeterminate"
	default:
		return "scrape_error"
	}
}

// ProbeOutcome is the tri-state result of one check against a retailer site.
// Only Available and Unavailable outcomes may advance a tracker.
type ProbeOutcome struct {
	Kind   OutcomeKind
	Detail string // only set for OutcomeAvailable
	Err    error  // only set for OutcomeScrapeError
}

func Available(detail string) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeAvailable, Detail: detail}
}

func Unavailable() ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeUnavailable}
}

func Indeterminate() ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeIndeterminate}
}

func ScrapeError(err error) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeScrapeError, Err: err}
}

// Definite reports whether the outcome carries real availability information.
func (o ProbeOutcome) Definite() bool {
	return o.Kind == OutcomeAvailable || o.Kind == OutcomeUnavailable
}

// State maps a definite outcome to the tracker state it represents.
func (o ProbeOutcome) State() TrackerState {
	switch o.Kind {
	case OutcomeAvailable:
		return StateHasSlot
	case OutcomeUnavailable:
		return StateNoSlot
	default:
		return StateUnknown
	}
}
