package types

// Bridge commands and token types recognized by the reconciler. This is the
// entire contract the hosted web application must honor.
const (
	CommandSaveToken  = "saveToken"
	CommandClearToken = "clearToken"

	TokenTypeAuth = "auth"
	TokenTypeFCM  = "fcm"
)

// BridgeMessage is the JSON payload the hosted page posts through the bridge
// callback. TokenType is optional for backward compatibility with pages that
// predate the discriminant field.
type BridgeMessage struct {
	Command      string `json:"command"`
	TokenType    string `json:"tokenType,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Token        string `json:"token,omitempty"`
}

// ErrorResponse is the generic JSON error body returned by the bridge HTTP
// surface.
type ErrorResponse struct {
	Error string `json:"error"`
}
