package models

// LaneHints tells the UI which decorations to render for a lane's cards.
type LaneHints struct {
	ShowMatchScore   bool `json:"showMatchScore"`
	ShowServiceBadge bool `json:"showServiceBadge"`
	ShowProgress     bool `json:"showProgress"`
}

// Lane is a named, ordered slice of the filtered pool. Lanes are pure views:
// they are recomputed whenever the pool, filter, or exclusion set changes and
// hold no lifecycle of their own.
type Lane struct {
	Title string        `json:"title"`
	Items []ContentItem `json:"items"`
	Hints LaneHints     `json:"hints"`
}

// HomeView is the assembled browse screen: one hero plus the display lanes.
type HomeView struct {
	Hero  *ContentItem `json:"hero,omitempty"`
	Lanes []Lane       `json:"lanes"`
}
