package types

// NavigationTarget is the initial view the shell should present after
// session bootstrap.
type NavigationTarget string

const (
	// TargetLogin sends the user to the hosted app's login route.
	TargetLogin NavigationTarget = "login"
	// TargetHome sends the user straight into the authenticated app.
	TargetHome NavigationTarget = "home"
)

// UserProfile holds the decoded profile of the authenticated principal as
// persisted under the user_data secure-store key.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Session represents the authenticated principal as known to the native
// shell. A zero Session means unauthenticated.
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	UserID       string       `json:"userId"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

// IsAuthenticated reports whether the session carries an access token.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}
