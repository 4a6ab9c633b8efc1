package signals

import (
	"reposync/internal/domain/conflict"
	"reposync/internal/domain/signal"
)

type signalInput struct {
	Body signal.Event
}

type signalOutput struct {
	Body SignalResponse
}

type SignalResponse struct {
	Action     signal.Action        `json:"action"`
	ModelID    string               `json:"model_id,omitempty"`
	Resolution *conflict.Resolution `json:"resolution,omitempty"`
}
