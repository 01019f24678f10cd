// Package dto holds the JSON envelopes the HTTP surface serializes,
// grounded on the teacher's generic APIResponse[T] wrapper.
package dto

import "time"

// APIResponse is the generic response envelope every handler returns.
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{Code: 0, Message: "success", Data: data}
}

// NewErrorResponse builds an error envelope with no data payload.
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{Code: code, Message: message}
}

// HealthResponse reports process liveness for /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// MetricsResponse mirrors scheduler.Metrics for /metrics.
type MetricsResponse struct {
	NodeCount        int    `json:"node_count"`
	MutedNodes       int    `json:"muted_nodes"`
	CurrTick         int    `json:"curr_tick"`
	LastTickDuration string `json:"last_tick_duration"`
	DegradedTicks    int    `json:"degraded_ticks"`
}

// TickResponse acknowledges a manually triggered tick.
type TickResponse struct {
	Timestamp time.Time `json:"timestamp"`
}
