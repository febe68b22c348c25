package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type route53Request struct {
	ID           string `json:"id"`
	HostedZoneID string `json:"hostedZoneId"`
	ChangeBatch  struct {
		Changes []struct {
			ResourceRecordSet struct {
				Name string `json:"name"`
			} `json:"resourceRecordSet"`
		} `json:"changes"`
	} `json:"changeBatch"`
}

// HostedZoneDeleted reports hosted zone deletion.
func (r *Ruleset) HostedZoneDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.route53Request(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Hosted zone %s deleted", request.ID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("hosted_zone_name", request.ID)}, nil
}

// RecordSetChanged reports DNS record changes, titled by the first
// record in the change batch. An empty batch stays silent.
func (r *Ruleset) RecordSetChanged(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.route53Request(event)
	if len(request.ChangeBatch.Changes) == 0 {
		return nil, nil
	}
	record := request.ChangeBatch.Changes[0].ResourceRecordSet.Name
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("DNS record %s changed in hosted zone %s", record, request.HostedZoneID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("hosted_zone_id", request.HostedZoneID).
		With("record_name", record)}, nil
}

func (r *Ruleset) route53Request(event *models.Event) route53Request {
	var request route53Request
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable Route53 request", slog.Any("error", err))
	}
	return request
}
