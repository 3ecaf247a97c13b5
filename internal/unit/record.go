// Package unit defines the normalized representation of one competency
// standard as extracted from a catalog detail page.
package unit

import "time"

// Lifecycle status values recognized on detail pages.
const (
	StatusCurrent    = "current"
	StatusSuperseded = "superseded"
	StatusDeleted    = "deleted"
)

// Element pairs an element of competency with its performance criteria,
// in page order.
type Element struct {
	Title               string   `json:"title"`
	PerformanceCriteria []string `json:"performance_criteria,omitempty"`
}

// EvidenceGroup is one topic of an evidence block together with its
// sub-items. A top-level bullet opens a topic; nested bullets and
// continuation lines land in Items.
type EvidenceGroup struct {
	Topic string   `json:"topic"`
	Items []string `json:"items,omitempty"`
}

// Link is a weak reference to a sibling unit page, never an ownership edge.
type Link struct {
	Code string `json:"code"`
	URL  string `json:"url,omitempty"`
}

// Section captures a heading and its immediate content in document order.
// It is the lossy-tolerant backstop for page structure no targeted field
// strategy models.
type Section struct {
	Heading    string   `json:"heading"`
	Level      int      `json:"level"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Items      []string `json:"items,omitempty"`
}

// Record is the normalized output of extraction. It is built once per
// successful extraction and replaced wholesale, never merged, when the same
// code is extracted again in a later run.
type Record struct {
	Code                 string          `json:"code"`
	Title                string          `json:"title"`
	Status               string          `json:"status,omitempty"`
	Release              string          `json:"release,omitempty"`
	Application          string          `json:"application,omitempty"`
	UnitSector           string          `json:"unit_sector,omitempty"`
	Prerequisites        []string        `json:"prerequisites,omitempty"`
	FoundationSkills     string          `json:"foundation_skills,omitempty"`
	Licensing            string          `json:"licensing,omitempty"`
	Elements             []Element       `json:"elements,omitempty"`
	PerformanceEvidence  []EvidenceGroup `json:"performance_evidence,omitempty"`
	KnowledgeEvidence    []EvidenceGroup `json:"knowledge_evidence,omitempty"`
	AssessmentConditions string          `json:"assessment_conditions,omitempty"`
	SupersededBy         *Link           `json:"superseded_by,omitempty"`
	Supersedes           *Link           `json:"supersedes,omitempty"`
	Sections             []Section       `json:"sections,omitempty"`
	SourceURL            string          `json:"source_url"`
	FetchedAt            time.Time       `json:"fetched_at"`
}
