package handler

import "github.com/authgate/session-auth/internal/core/domain"

// Landing views the client is sent to after each flow.
const (
	LoginPath   = "/auth/login"
	ProfilePath = "/profile/main"
	HomePath    = "/"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// credentialsRequest accepts both JSON bodies and HTML form posts. Emptiness
// is checked by the auth service so that it reports its own reason.
type credentialsRequest struct {
	Username string `json:"username" form:"username" validate:"max=64"`
	Password string `json:"password" form:"password" validate:"maxbytes=72"`
}

type redirectResponse struct {
	Message  string       `json:"message"`
	Redirect string       `json:"redirect"`
	User     *domain.User `json:"user,omitempty"`
}

type profileResponse struct {
	User *domain.User `json:"user"`
}

type privateResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
