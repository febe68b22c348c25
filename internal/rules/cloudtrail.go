package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

var trailTitles = map[string]string{
	"StopLogging": "CloudTrail logging stopped for %s",
	"DeleteTrail": "CloudTrail %s deleted",
}

type trailRequest struct {
	Name string `json:"name"`
}

// TrailTampered unconditionally reports operations that stop or delete a
// CloudTrail trail. These reduce the account's ability to detect further
// incidents, so no filtering applies.
func (r *Ruleset) TrailTampered(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request trailRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable CloudTrail request", slog.Any("error", err))
	}
	trailName := request.Name
	if trailName == "" {
		trailName = "Unknown"
	}

	format, ok := trailTitles[event.Detail.EventName]
	if !ok {
		format = "CloudTrail event on %s"
	}
	return []models.Violation{models.NewViolation(fmt.Sprintf(format, trailName)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("resource_name", trailName)}, nil
}
