package domain

import "time"

// AccessLogEntry is an append-only audit record of an authentication
// attempt. UserID may be nil for failures where no account was resolved.
type AccessLogEntry struct {
	ID            string    `json:"id"`
	UserID        *string   `json:"user_id,omitempty"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	DeviceType    string    `json:"device_type"`
	Browser       string    `json:"browser"`
	Success       bool      `json:"success"`
	TwoFactorUsed bool      `json:"two_factor_used"`
	LoginTime     time.Time `json:"login_time"`
}
