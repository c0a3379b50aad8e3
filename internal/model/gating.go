package model

// RejectionReason identifies why a click was refused by the gating pipeline.
type RejectionReason string

const (
	ReasonOutsideBoundary RejectionReason = "OUTSIDE_BOUNDARY"
	ReasonCellBlocked     RejectionReason = "CELL_BLOCKED"
)

// GateOutcome is the structured result of running a click through the gating
// pipeline. Rejections are expected outcomes, not errors; the display layer
// turns them into transient notices.
type GateOutcome struct {
	Accepted  bool            `json:"accepted"`
	Reason    RejectionReason `json:"reason,omitempty"`
	Longitude float64         `json:"longitude"`
	Latitude  float64         `json:"latitude"`
	CellIndex *int            `json:"cellIndex,omitempty"`
}
