package types

// FrameSummary is published retained on "telemetry/frame" after every frame.
type FrameSummary struct {
	Solar      float64 `json:"solar_w"`
	Grid       float64 `json:"grid_w"`
	Sensor     float64 `json:"sensor"`
	Brightness float64 `json:"brightness"`
	TS         int64   `json:"ts_ms"`
}

// FetchStatus is published on "telemetry/fetch" after every acquisition.
type FetchStatus struct {
	URL      string `json:"url"`
	Attempts int    `json:"attempts"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	TS       int64  `json:"ts_ms"`
}
