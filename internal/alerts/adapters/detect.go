package adapters

import (
	"encoding/json"
	"strings"
)

var (
	grafanaAdapter    = NewGrafanaAdapter()
	cloudWatchAdapter = NewCloudWatchAdapter()
	canonicalAdapter  = NewCanonicalAdapter()
)

// All returns the closed adapter set.
func All() []Adapter {
	return []Adapter{grafanaAdapter, cloudWatchAdapter, canonicalAdapter}
}

// Detect picks the adapter for a payload. The transport's provider hint
// wins; without one the payload shape is sniffed in a fixed order. Detect
// never fails: the final fallback is the canonical validator, which then
// reports precise field-level errors for whatever the payload is missing.
func Detect(providerHint string, payload []byte) Adapter {
	switch strings.ToLower(strings.TrimSpace(providerHint)) {
	case "grafana":
		return grafanaAdapter
	case "cloudwatch", "aws-cloudwatch":
		return cloudWatchAdapter
	case "canonical", "normalized":
		return canonicalAdapter
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(payload, &shape); err != nil {
		return canonicalAdapter
	}

	if _, ok := shape["alerts"]; ok {
		if _, ok := shape["receiver"]; ok {
			return grafanaAdapter
		}
	}
	if _, ok := shape["AlarmName"]; ok {
		return cloudWatchAdapter
	}
	if _, ok := shape["AlarmArn"]; ok {
		return cloudWatchAdapter
	}
	// An SNS wrapper hides the alarm inside Message.
	if msg, ok := shape["Message"]; ok {
		var inner string
		if err := json.Unmarshal(msg, &inner); err == nil && strings.Contains(inner, "AlarmName") {
			return cloudWatchAdapter
		}
	}
	return canonicalAdapter
}
