package dto

// AdminListDepositsRequest filters the deposit listing and export
type AdminListDepositsRequest struct {
	UserID string `query:"user_id"`
	Status string `query:"status" validate:"omitempty,oneof=pending paid confirmed completed canceled failed"`
	Method string `query:"method" validate:"omitempty,oneof=coinbase square"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type AdminListDepositsResponse struct {
	Deposits []DepositDTO `json:"deposits"`
	Total    int64        `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
}

// AdminListWebhookLogsRequest filters the webhook audit trail
type AdminListWebhookLogsRequest struct {
	Source string `query:"source" validate:"omitempty,oneof=coinbase square debug"`
	Event  string `query:"event"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type WebhookLogDTO struct {
	ID           uint     `json:"id"`
	Source       string   `json:"source"`
	Event        string   `json:"event"`
	EventType    *string  `json:"event_type,omitempty"`
	HTTPStatus   int      `json:"http_status"`
	DepositID    *string  `json:"deposit_id,omitempty"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
	ErrorMessage *string  `json:"error_message,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

type AdminListWebhookLogsResponse struct {
	Logs   []WebhookLogDTO `json:"logs"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// DBPingResponse reports a read and a write against the database
type DBPingResponse struct {
	OK          bool   `json:"ok"`
	WalletCount int64  `json:"wallet_count"`
	LogWritten  bool   `json:"log_written"`
	Error       string `json:"error,omitempty"`
}

// EnvReportResponse lists which settings are present without revealing them
type EnvReportResponse struct {
	Environment          string          `json:"environment"`
	DepositSuccessStatus string          `json:"deposit_success_status"`
	Present              map[string]bool `json:"present"`
}
