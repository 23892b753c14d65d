package models

import (
	"github.com/golang-jwt/jwt/v4"
)

// SessionClaims binds a stable account id to a tenant/experience. The
// game socket refuses tokens whose experience does not match the one
// the client claims to be connecting for.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	ExperienceID string `json:"experienceId"`
}
