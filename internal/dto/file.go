package dto

import "time"

type DownloadGrantRequest struct {
	StorageKey string `json:"storage_key"`
}

type GrantResponse struct {
	TraceID    string    `json:"traceId"`
	Token      string    `json:"token"`
	TargetURI  string    `json:"target_uri"`
	StorageKey string    `json:"storage_key,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type RedeemRequest struct {
	Token string `json:"token"`
}

type RedeemResponse struct {
	Scope      string `json:"scope"`
	Subject    string `json:"subject"`
	StorageKey string `json:"storage_key,omitempty"`
}
