package auth

import "time"

// Config drives API token behavior.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// Enabled reports whether bearer tokens are required.
func (c Config) Enabled() bool {
	return c.Secret != ""
}

// IssuedToken is returned to operators minting API credentials.
type IssuedToken struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are extracted from the JWT token.
type Claims struct {
	Subject   string
	TokenID   string
	TokenType string
	ExpiresAt time.Time
}
