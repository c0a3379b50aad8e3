package model

// LoadResult summarizes one bulk load of a tabular source: how many rows
// became records and how many were skipped as malformed or duplicated.
type LoadResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}
