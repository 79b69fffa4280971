package pipeline

import (
	"context"
	"strings"

	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	contractPrefix = "0x"
	contractLength = 42
	handlePrefix   = "@"

	// UnknownProjectName stands in for contract inputs; address to name resolution is not supported.
	UnknownProjectName = "Unknown Project"
)

// Classify tags raw input by prefix and length only. It never fails.
// Surrounding whitespace is trimmed before the rules apply, so " @foo" is a handle.
func Classify(raw string) models.InputIdentity {
	input := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(input, contractPrefix) && len(input) == contractLength:
		return models.InputIdentity{Type: models.InputContractAddress, Value: input}
	case strings.HasPrefix(input, handlePrefix):
		return models.InputIdentity{Type: models.InputSocialHandle, Value: input}
	default:
		return models.InputIdentity{Type: models.InputProjectName, Value: input}
	}
}

// identify honours an explicit type without re-validating it.
func identify(raw string, explicit models.InputType) models.InputIdentity {
	if explicit != "" {
		return models.InputIdentity{Type: explicit, Value: strings.TrimSpace(raw)}
	}
	return Classify(raw)
}

// ResolveCanonicalName picks the name used for every provider lookup.
func (p *Pipeline) ResolveCanonicalName(ctx context.Context, id models.InputIdentity) string {
	switch id.Type {
	case models.InputSocialHandle:
		if username, ok := p.collector.ResolveHandle(ctx, id.Value); ok {
			return username
		}
		return id.Value
	case models.InputContractAddress:
		return UnknownProjectName
	default:
		return id.Value
	}
}
