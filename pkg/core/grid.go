// pkg/core/grid.go
package core

// GridIndex addresses one cell of the battlefield.
type GridIndex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MapSize is the fixed rectangle of a war map.
type MapSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MovePath is the path a unit travels in a unit action.
// FuelConsumption is the fuel spent for the nodes actually travelled.
type MovePath struct {
	Nodes           []GridIndex `json:"nodes"`
	FuelConsumption int         `json:"fuelConsumption"`
	IsBlocked       bool        `json:"isBlocked,omitempty"`
}

// Start returns the first node of the path.
func (p MovePath) Start() GridIndex {
	return p.Nodes[0]
}

// End returns the last node of the path.
func (p MovePath) End() GridIndex {
	return p.Nodes[len(p.Nodes)-1]
}
