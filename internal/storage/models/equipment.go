package models

// Equipment represents a reservable item of troop gear (tents, stoves,
// ropes...). Reference data owned by the backend; the station never
// changes it.
type Equipment struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	QuantityTotal int    `json:"quantity_total"`
}
