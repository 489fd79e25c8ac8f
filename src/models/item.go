package models

// Item represents one entry of the exchange item catalog. The catalog is
// fetched once per session from the mapping endpoint and indexed by ID;
// items are immutable after load.
type Item struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine,omitempty"`
	Members  bool   `json:"members"`
	BuyLimit int    `json:"limit"`
	Value    int    `json:"value"`
	HighAlch int    `json:"highalch"`
	LowAlch  int    `json:"lowalch"`
	Icon     string `json:"icon,omitempty"`
}
