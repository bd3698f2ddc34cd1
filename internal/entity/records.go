// file: internal/entity/records.go

package entity

// Trigger carries the display fields of a trigger together with its stored expression
type Trigger struct {
	ID          string `json:"triggerid" yaml:"triggerid"`
	Description string `json:"description" yaml:"description"`
	Comments    string `json:"comments,omitempty" yaml:"comments,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Expression  string `json:"expression" yaml:"expression"`
}

type Graph struct {
	ID   string `json:"graphid" yaml:"graphid"`
	Name string `json:"name" yaml:"name"`
}

// MapElement is a network map element bound to a host
type MapElement struct {
	ID     string `json:"selementid" yaml:"selementid"`
	HostID string `json:"hostid,omitempty" yaml:"hostid,omitempty"`
	Label  string `json:"label" yaml:"label"`
}

// Records is a set of records submitted for resolution. Only the slice that
// matches the scenario is read.
type Records struct {
	Triggers    []Trigger    `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Items       []Item       `json:"items,omitempty" yaml:"items,omitempty"`
	Graphs      []Graph      `json:"graphs,omitempty" yaml:"graphs,omitempty"`
	MapElements []MapElement `json:"mapElements,omitempty" yaml:"mapElements,omitempty"`
}

// Len returns the total number of records
func (r Records) Len() int {
	return len(r.Triggers) + len(r.Items) + len(r.Graphs) + len(r.MapElements)
}

// Sample is one historical value of an item
type Sample struct {
	Clock int64   `json:"clock" yaml:"clock"`
	Value float64 `json:"value" yaml:"value"`
}
