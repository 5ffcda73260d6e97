package jwttoken

import (
	"memoflow/internal/platform/middleware"
)

// ToMiddlewareClaims narrows token claims to the principal the auth gate stores.
// Tokens minted elsewhere may only carry the standard subject.
func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return &middleware.JWTClaims{
		UserID: userID,
		Role:   claims.Role,
	}
}

// JWTServiceAdapter lets middleware.RequireAuth validate tokens without importing this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
