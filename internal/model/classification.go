package model

// Classification is the per-cell label loaded from the land-use dataset.
// A cell index absent from the classification set is unclassified, which is
// always treated as allowed, never as blocked.
type Classification struct {
	CellIndex      int
	Cultivable     bool
	PredictedClass string
	Confidence     float64
}

// Blocked reports whether a click on this cell must be rejected.
func (c *Classification) Blocked() bool {
	return !c.Cultivable
}
