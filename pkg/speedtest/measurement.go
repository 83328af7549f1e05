package speedtest

// Metrics carries the numbers one complete measurement produced.
// Download and Upload are bits per second; every latency figure is in
// milliseconds. Field names follow the report schema consumed by the
// dashboard and the collector, so changing them breaks downstream parsing.
type Metrics struct {
	Download float64 `json:"download"`
	Upload   float64 `json:"upload"`
	Latency  float64 `json:"latency"`
	Jitter   float64 `json:"jitter"`

	// Loaded figures are measured while the link is saturated
	DownLoadedLatency float64 `json:"downLoadedLatency,omitempty"`
	DownLoadedJitter  float64 `json:"downLoadedJitter,omitempty"`
	UpLoadedLatency   float64 `json:"upLoadedLatency,omitempty"`
	UpLoadedJitter    float64 `json:"upLoadedJitter,omitempty"`
}

// Report is the measurement document written to disk and submitted to the
// collector. Failed attempts are reported too, with Success set to false;
// consumers filter them out.
type Report struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"sessionID,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Error     string   `json:"error,omitempty"`
	Result    *Metrics `json:"result,omitempty"`
}
