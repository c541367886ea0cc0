package teller

type ProductSelectedV1 struct {
	Product Product `json:"product"`
}

type ProductDetailSyncV1 struct {
	Product Product `json:"product"`
}

// ProductVisualizationSyncV1 mirrors the employee's simulation view. Subject
// to the enrollment lock and recency guard on the receiver.
type ProductVisualizationSyncV1 struct {
	Product          Product `json:"product"`
	SimulationAmount float64 `json:"simulation_amount,omitempty"`
	SimulationPeriod int     `json:"simulation_period,omitempty"` // months
}
