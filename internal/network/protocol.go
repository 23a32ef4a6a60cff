package network

import (
	"time"

	"github.com/leengari/flatsql/internal/executor"
)

// Request types
const (
	TypeCaptcha = "captcha"
	TypeLogin   = "login"
	TypeQuery   = "query"
	TypeLogout  = "logout"
)

// Request is one JSON line sent by a client. A request without a type but
// with a query is treated as a query.
type Request struct {
	Type     string `json:"type,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Password string `json:"password,omitempty"`
	Captcha  string `json:"captcha,omitempty"`
	Query    string `json:"query,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Response answers exactly one Request
type Response struct {
	Type      string           `json:"type"`
	Success   bool             `json:"success"`
	Captcha   string           `json:"captcha,omitempty"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	User      string           `json:"user,omitempty"`
	Result    *executor.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Kind      string           `json:"kind,omitempty"`
}
