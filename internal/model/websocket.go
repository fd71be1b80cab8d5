package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
	WSMessageTypePing     WSMessageType = "ping"
	WSMessageTypePong     WSMessageType = "pong"
)

// WSMessage is the generic envelope for client-originated messages.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

// WSProgressMessage streams render progress to job subscribers.
type WSProgressMessage struct {
	Type     WSMessageType `json:"type"`
	JobID    string        `json:"jobId"`
	Progress int           `json:"progress"`
	Status   JobStatus     `json:"status"`
	Stage    string        `json:"stage,omitempty"`
}

// WSCompleteMessage carries the final result to job subscribers.
type WSCompleteMessage struct {
	Type   WSMessageType `json:"type"`
	JobID  string        `json:"jobId"`
	Result interface{}   `json:"result"`
}

// WSErrorMessage reports a failed render to job subscribers.
type WSErrorMessage struct {
	Type  WSMessageType `json:"type"`
	JobID string        `json:"jobId"`
	Error WSError       `json:"error"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
