package models

// AlignedPoint is one minute of the merged temperature/humidity series.
// A nil value means no sample was recorded for that metric in that minute.
type AlignedPoint struct {
	TimeKey     string   `json:"time_key"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Series is the result of an alignment request.
type Series struct {
	Range    string          `json:"range"`
	Points   []*AlignedPoint `json:"points"`
	Degraded bool            `json:"degraded"`
}
