package types

// AxisSnapshot is one profile plus its fitted curve for the live view.
type AxisSnapshot struct {
	Coords []float64 `json:"coords"`
	Values []float64 `json:"values"`
	Curve  []float64 `json:"curve,omitempty"`
	Fit    FitResult `json:"fit"`
}

type UIUpdate struct {
	Type    string        `json:"type"`
	Camera  string        `json:"camera"`
	Caption string        `json:"caption"`
	Rate    float64       `json:"rate"`
	Units   string        `json:"units"`
	Seq     uint64        `json:"seq"`
	X       *AxisSnapshot `json:"x,omitempty"`
	Y       *AxisSnapshot `json:"y,omitempty"`
}

type UIMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
