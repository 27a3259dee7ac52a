package dto

// TokenRequest is the body of POST /api/auth/token. The original clients
// sent either field name, both are accepted.
type TokenRequest struct {
	APIKey    string `json:"apiKey"`
	ClientKey string `json:"clientKey"`
}

// Key returns whichever key field was provided.
func (r TokenRequest) Key() string {
	if r.APIKey != "" {
		return r.APIKey
	}
	return r.ClientKey
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

// ConversationRequest is the body of POST /api/conversation.
type ConversationRequest struct {
	Message     string   `json:"message"`
	SessionID   string   `json:"sessionId"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

// SwitchModelRequest is the body of POST /api/models/switch.
type SwitchModelRequest struct {
	Model string `json:"model"`
}
