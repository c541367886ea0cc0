package teller

// ProductAnalysisV1 opens the side-by-side comparison overlay. Also published
// under the legacy "show-comparison" type by older employee builds.
type ProductAnalysisV1 struct {
	SelectedProducts []Product `json:"selected_products,omitempty"`
	Product          *Product  `json:"product,omitempty"`
	SimulationAmount float64   `json:"simulation_amount,omitempty"`
	SimulationPeriod int       `json:"simulation_period,omitempty"`
}

type ProductAnalysisCloseV1 struct{}
