package core

// TombstoneState describes whether a node is visible to "now" queries.
type TombstoneState int

const (
	// Live means the node is visible to present-time queries.
	Live TombstoneState = iota
	// Tombstoned means the node is logically absent at present, though its
	// historical edge records remain queryable at earlier timestamps.
	Tombstoned
)

func (s TombstoneState) String() string {
	if s == Tombstoned {
		return "tombstoned"
	}
	return "live"
}
