package model

// Principal is the authenticated caller as reported by the auth proxy in
// front of the service. The core records it but never authenticates it.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Identity is the value stored in createdBy and participants.
func (p Principal) Identity() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.Email
}

func (p Principal) IsZero() bool {
	return p.UserID == "" && p.Email == ""
}
