// -----------------------------------------------------------------------
// Specialist, competitor, and final report structures
// -----------------------------------------------------------------------

package models

import "time"

// AnalyzerKind identifies one specialist analysis pass.
type AnalyzerKind string

const (
	AnalyzerTechnical AnalyzerKind = "technical"
	AnalyzerContent   AnalyzerKind = "content"
	AnalyzerVisual    AnalyzerKind = "visual"
)

// SpecialistReport is one analyzer's findings for one site. A failed
// analyzer is represented explicitly (Failed=true, empty findings) so
// downstream stages can tell "no findings" from "analyzer failed".
type SpecialistReport struct {
	Analyzer   AnalyzerKind `json:"analyzer"`
	Strengths  []string     `json:"strengths"`
	Weaknesses []string     `json:"weaknesses"`
	Failed     bool         `json:"failed,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// CompetitorReport aggregates one site's snapshot with its specialist
// findings.
type CompetitorReport struct {
	URL         string             `json:"url"`
	Snapshot    *SiteSnapshot      `json:"snapshot"`
	Specialists []SpecialistReport `json:"specialists"`
}

// FinalReport is a job's terminal artifact, produced exactly once per
// successful job and handed to the result sink.
type FinalReport struct {
	BrandName           string             `json:"brand_name"`
	Category            string             `json:"category"`
	CompetitorsAnalyzed []CompetitorReport `json:"competitors_analyzed"`
	Analysis            string             `json:"analysis"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// ReportDocument is the result-sink record written on job completion,
// keyed by job ID. It carries the original job inputs alongside the
// report, matching the sink contract.
type ReportDocument struct {
	JobID          string       `badgerhold:"key" json:"job_id"`
	DocumentID     string       `json:"document_id"`
	BrandName      string       `json:"brand_name"`
	Category       string       `json:"category"`
	CompetitorURLs []string     `json:"competitor_urls"`
	Report         *FinalReport `json:"report"`
	Success        bool         `json:"success"`
	CreatedAt      time.Time    `json:"created_at"`
}
