package models

import "net/http"

// Status is the terminal state of one invocation.
type Status string

// Terminal invocation states. None of them trigger an internal retry;
// redelivery, if any, is the event bus's responsibility.
const (
	StatusRejected       Status = "rejected"
	StatusSkipped        Status = "skipped"
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery-failed"
	StatusFailed         Status = "failed"
)

// Response is the structured outcome reported back to the invoking
// platform.
type Response struct {
	Status     Status `json:"status"`
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// NewResponse builds a Response with the conventional status code for the
// given terminal state.
func NewResponse(status Status, body string) Response {
	code := http.StatusOK
	switch status {
	case StatusRejected:
		code = http.StatusBadRequest
	case StatusDeliveryFailed, StatusFailed:
		code = http.StatusInternalServerError
	}
	return Response{Status: status, StatusCode: code, Body: body}
}
