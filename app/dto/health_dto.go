package dto

// HealthResponse is returned by the liveness probe
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PingResponse echoes deployment facts for uptime monitors
type PingResponse struct {
	OK     bool   `json:"ok"`
	TS     int64  `json:"ts"`
	ISO    string `json:"iso"`
	Env    string `json:"env"`
	Region string `json:"region,omitempty"`
	Commit string `json:"commit,omitempty"`
	Echo   string `json:"echo,omitempty"`
}
