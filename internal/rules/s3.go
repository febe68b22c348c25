package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type bucketACLRequest struct {
	BucketName string   `json:"bucketName"`
	ACL        []string `json:"x-amz-acl"`
}

// BucketACLChanged reports buckets whose canned ACL is set to a public
// grant.
func (r *Ruleset) BucketACLChanged(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request bucketACLRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable PutBucketAcl request, skipping", slog.Any("error", err))
		return nil, nil
	}

	var public []string
	for _, grant := range request.ACL {
		if grant == "public-read" || grant == "public-read-write" {
			public = append(public, grant)
		}
	}
	if len(public) == 0 {
		return nil, nil
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("S3 bucket %s ACL set to %s", request.BucketName, strings.Join(public, ", "))).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("resource_name", request.BucketName)}, nil
}

type publicAccessBlockRequest struct {
	BucketName                     string `json:"bucketName"`
	PublicAccessBlockConfiguration struct {
		RestrictPublicBuckets bool `json:"RestrictPublicBuckets"`
		BlockPublicPolicy     bool `json:"BlockPublicPolicy"`
		BlockPublicAcls       bool `json:"BlockPublicAcls"`
		IgnorePublicAcls      bool `json:"IgnorePublicAcls"`
	} `json:"PublicAccessBlockConfiguration"`
}

// BucketPublicAccessBlockChanged reports buckets whose public access
// block loses any of its four guards.
func (r *Ruleset) BucketPublicAccessBlockChanged(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request publicAccessBlockRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable PutBucketPublicAccessBlock request, skipping", slog.Any("error", err))
		return nil, nil
	}

	block := request.PublicAccessBlockConfiguration
	if block.RestrictPublicBuckets && block.BlockPublicPolicy && block.BlockPublicAcls && block.IgnorePublicAcls {
		return nil, nil
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("S3 bucket %s public access block weakened", request.BucketName)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("resource_name", request.BucketName)}, nil
}
