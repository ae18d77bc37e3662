package domain

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPayload holds the identity claims carried by every token.
type TokenPayload struct {
	UserID string
}

// TokenPair is returned once per signup, login or refresh and never stored.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
