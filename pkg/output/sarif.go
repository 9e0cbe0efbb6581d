package output

import (
	"encoding/json"
	"time"

	"github.com/depscope/depscope/pkg/analyzer"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
	Help             SarifMessage `json:"help"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           SarifRegion           `json:"region,omitempty"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifRegion represents a region in the code
type SarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

var sarifRules = []SarifRule{
	{
		ID:               "unused",
		ShortDescription: SarifMessage{Text: "Unused dependency"},
		FullDescription:  SarifMessage{Text: "The dependency is declared in the manifest but never imported, directly or indirectly."},
		Help:             SarifMessage{Text: "Remove the declaration or add an import."},
	},
	{
		ID:               "missing",
		ShortDescription: SarifMessage{Text: "Missing dependency"},
		FullDescription:  SarifMessage{Text: "The package is imported by source code but neither declared nor installed."},
		Help:             SarifMessage{Text: "Add the package to the manifest."},
	},
	{
		ID:               "phantom",
		ShortDescription: SarifMessage{Text: "Phantom dependency"},
		FullDescription:  SarifMessage{Text: "The package is imported but only reachable through a transitive install; it can disappear when the vendoring package changes."},
		Help:             SarifMessage{Text: "Declare the package explicitly."},
	},
	{
		ID:               "dev-only-mismatch",
		ShortDescription: SarifMessage{Text: "Dev-only dependency used at runtime"},
		FullDescription:  SarifMessage{Text: "The package is declared in devDependencies but imported by runtime code."},
		Help:             SarifMessage{Text: "Move the declaration to dependencies."},
	},
	{
		ID:               "circular-import",
		ShortDescription: SarifMessage{Text: "Circular import"},
		FullDescription:  SarifMessage{Text: "A chain of local imports forms a cycle."},
		Help:             SarifMessage{Text: "Break the cycle by extracting the shared code."},
	},
	{
		ID:               "peer-conflict",
		ShortDescription: SarifMessage{Text: "Peer dependency conflict"},
		FullDescription:  SarifMessage{Text: "Installed packages require peer versions that cannot all be satisfied at once."},
		Help:             SarifMessage{Text: "Align the requiring packages on a compatible peer version."},
	},
	{
		ID:               "peer-missing",
		ShortDescription: SarifMessage{Text: "Missing peer dependency"},
		FullDescription:  SarifMessage{Text: "An installed package declares a non-optional peer that is not installed."},
		Help:             SarifMessage{Text: "Install the required peer."},
	},
}

// GenerateSarifReport converts the analysis report to SARIF format
func GenerateSarifReport(report *analyzer.Report, version string) ([]byte, error) {
	results := make([]SarifResult, 0, len(report.Issues))
	for _, issue := range report.Issues {
		result := SarifResult{
			RuleID:  string(issue.Kind),
			Level:   sarifLevel(issue.Severity),
			Message: SarifMessage{Text: issue.Message},
		}
		if len(issue.Evidence) == 0 {
			result.Locations = []SarifLocation{{
				PhysicalLocation: SarifPhysicalLocation{
					ArtifactLocation: SarifArtifactLocation{URI: report.ProjectRoot},
				},
			}}
		}
		for _, ev := range issue.Evidence {
			result.Locations = append(result.Locations, SarifLocation{
				PhysicalLocation: SarifPhysicalLocation{
					ArtifactLocation: SarifArtifactLocation{URI: ev.File},
					Region:           SarifRegion{StartLine: ev.Line},
				},
			})
		}
		results = append(results, result)
	}

	now := time.Now().UTC()
	sarifReport := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "depscope",
						Version:        version,
						InformationURI: "https://github.com/depscope/depscope",
						Rules:          sarifRules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: true,
						StartTimeUtc:        now.Format(time.RFC3339),
						EndTimeUtc:          now.Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(sarifReport, "", "  ")
}

func sarifLevel(severity string) string {
	switch severity {
	case "error", "high":
		return "error"
	case "warning", "medium":
		return "warning"
	default:
		return "note"
	}
}
