package output

import (
	"encoding/json"

	"github.com/depscope/depscope/pkg/analyzer"
)

// GenerateJSONReport serializes the full report.
func GenerateJSONReport(report *analyzer.Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
