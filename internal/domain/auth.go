package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthState is the credential set for the primary provider.
// The zero value is the empty (logged out) state.
type AuthState struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// EmptyAuthState is the logged-out state.
var EmptyAuthState = AuthState{}

// AuthStateFromToken converts an oauth2 token.
func AuthStateFromToken(tok *oauth2.Token) AuthState {
	if tok == nil {
		return EmptyAuthState
	}
	return AuthState{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}

// Token converts back to an oauth2 token.
func (a AuthState) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    a.TokenType,
		Expiry:       a.Expiry,
	}
}

// IsAuthorized reports whether the state carries an access token.
// Expiry does not log the user out; the token is refreshed instead.
func (a AuthState) IsAuthorized() bool {
	return a.AccessToken != ""
}

// AuthStatus is the derived, externally visible session state.
type AuthStatus int

const (
	LoggedOut AuthStatus = iota
	LoggedIn
)

func (s AuthStatus) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "logged out"
}

// StatusOf derives the session status from an auth state.
func StatusOf(a AuthState) AuthStatus {
	if a.IsAuthorized() {
		return LoggedIn
	}
	return LoggedOut
}
