// Package models provides the core data structures shared between the
// registry, rules and notification layers.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Event represents a CloudTrail event delivered through EventBridge.
type Event struct {
	ID         string    `json:"id"`
	DetailType string    `json:"detail-type"`
	Source     string    `json:"source"`
	Account    string    `json:"account"`
	Time       time.Time `json:"time"`
	Region     string    `json:"region"`
	Resources  []string  `json:"resources"`
	Detail     Detail    `json:"detail"`
}

// Detail is the CloudTrail record carried in the EventBridge envelope.
// RequestParameters, ResponseElements and AdditionalEventData are kept raw
// because their shape varies per API call; each rule decodes the slice it
// understands.
type Detail struct {
	EventName           string          `json:"eventName"`
	EventSource         string          `json:"eventSource"`
	EventTime           string          `json:"eventTime"`
	AWSRegion           string          `json:"awsRegion"`
	SourceIPAddress     string          `json:"sourceIPAddress"`
	UserIdentity        UserIdentity    `json:"userIdentity"`
	RequestParameters   json.RawMessage `json:"requestParameters"`
	ResponseElements    json.RawMessage `json:"responseElements"`
	AdditionalEventData json.RawMessage `json:"additionalEventData"`
}

// UserIdentity identifies the principal that performed the API call.
type UserIdentity struct {
	Type      string `json:"type"`
	ARN       string `json:"arn"`
	UserName  string `json:"userName"`
	AccountID string `json:"accountId"`
	InvokedBy string `json:"invokedBy"`
}

// Actor returns the human-facing name of the acting principal: "Root" for
// the root account, otherwise the last path segment of the identity ARN,
// falling back to the identity type.
func (e *Event) Actor() string {
	identity := e.Detail.UserIdentity
	if identity.Type == "Root" {
		return "Root"
	}
	if identity.ARN != "" {
		parts := strings.Split(identity.ARN, "/")
		return parts[len(parts)-1]
	}
	if identity.Type != "" {
		return identity.Type
	}
	return "Unknown"
}

// DecodeRequest unmarshals requestParameters into v. An absent or empty
// section leaves v untouched and returns no error: CloudTrail omits
// sections freely across API versions, and a missing field always means
// "skip this check" rather than a failure.
func (d *Detail) DecodeRequest(v any) error {
	return decodeSection(d.RequestParameters, v)
}

// DecodeResponse unmarshals responseElements into v, with the same
// missing-section semantics as DecodeRequest.
func (d *Detail) DecodeResponse(v any) error {
	return decodeSection(d.ResponseElements, v)
}

// DecodeAdditional unmarshals additionalEventData into v, with the same
// missing-section semantics as DecodeRequest.
func (d *Detail) DecodeAdditional(v any) error {
	return decodeSection(d.AdditionalEventData, v)
}

func decodeSection(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
