package host

// LinkState is the host's view of the physical link.
type LinkState uint8

const (
	// LinkDown means the link partner is off or the link is untrained.
	LinkDown LinkState = iota

	// LinkUpTry means the link is being brought up.
	LinkUpTry

	// LinkUp means the link is trained and the bus enumerated.
	LinkUp

	// LinkDownTry means the link is being torn down.
	LinkDownTry
)

// String returns the link state name.
func (s LinkState) String() string {
	switch s {
	case LinkDown:
		return "LINK_DOWN"
	case LinkUpTry:
		return "LINK_UP_TRY"
	case LinkUp:
		return "LINK_UP"
	case LinkDownTry:
		return "LINK_DOWN_TRY"
	default:
		return "UNKNOWN"
	}
}
