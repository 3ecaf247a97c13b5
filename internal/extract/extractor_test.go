package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unitscout/unitscout/internal/unit"
)

const samplePage = `<html><head><title>doc</title></head><body>
<h1>MARA022 - Transmit and receive information by marine radio</h1>
<span class="status">Current</span>
<p>Release: 1</p>
<p>Superseded by <a href="/unit/MARA123">MARA123 - Newer unit</a></p>
<p>Supersedes <a href="/unit/MARA021">MARA021</a></p>
<h2>Application</h2>
<p>This unit involves the skills and knowledge required to operate marine radio.</p>
<h2>Unit Sector</h2>
<p>Maritime</p>
<h2>Elements and Performance Criteria</h2>
<table>
  <tr><th>Elements</th><th>Performance Criteria</th></tr>
  <tr><td>1. Prepare radio equipment</td><td><ul><li>1.1 Radio is switched on</li><li>1.2 Channels are selected</li></ul></td></tr>
  <tr><td>2. Transmit messages</td><td>2.1 Message is composed<br>2.2 Message is transmitted</td></tr>
</table>
<h2>Performance Evidence</h2>
<p>Evidence of the ability to:</p>
<ul>
  <li>operate marine radio equipment including:
    <ul><li>VHF radio</li><li>HF radio</li></ul>
  </li>
  <li>respond to distress calls</li>
</ul>
<h2>Knowledge Evidence</h2>
<ul><li>radio protocols</li><li>radio protocols</li><li>emergency procedures</li></ul>
<h2>Assessment Conditions</h2>
<p>Assessment must occur in workplace operational situations.</p>
</body></html>`

func TestExtractSamplePage(t *testing.T) {
	t.Parallel()

	rec := Extract(samplePage, "https://catalog.example/unit/MARA022")

	require.Equal(t, "MARA022", rec.Code)
	require.Equal(t, "Transmit and receive information by marine radio", rec.Title)
	require.Equal(t, unit.StatusCurrent, rec.Status)
	require.Equal(t, "1", rec.Release)
	require.False(t, rec.FetchedAt.IsZero())

	require.NotNil(t, rec.SupersededBy)
	require.Equal(t, "MARA123", rec.SupersededBy.Code)
	require.Equal(t, "https://catalog.example/unit/MARA123", rec.SupersededBy.URL)
	require.NotNil(t, rec.Supersedes)
	require.Equal(t, "MARA021", rec.Supersedes.Code)

	require.Contains(t, rec.Application, "operate marine radio")
	require.Equal(t, "Maritime", rec.UnitSector)
	require.Contains(t, rec.AssessmentConditions, "workplace operational situations")
}

func TestExtractElementsTableShapes(t *testing.T) {
	t.Parallel()

	rec := Extract(samplePage, "")
	require.Len(t, rec.Elements, 2)
	require.Equal(t, "1. Prepare radio equipment", rec.Elements[0].Title)
	require.Equal(t, []string{"1.1 Radio is switched on", "1.2 Channels are selected"}, rec.Elements[0].PerformanceCriteria)
	require.Equal(t, []string{"2.1 Message is composed", "2.2 Message is transmitted"}, rec.Elements[1].PerformanceCriteria)
}

func TestExtractThreeColumnTable(t *testing.T) {
	t.Parallel()

	html := `<html><body><table>
<tr><th>Element</th><th>Number</th><th>Performance criteria</th></tr>
<tr><td>1. Plan work</td><td>1.1</td><td>Work is planned</td></tr>
<tr><td></td><td>1.2</td><td>Tools are selected</td></tr>
<tr><td></td><td>2</td><td>Extra continuation text</td></tr>
<tr><td>2. Do work</td><td>2.1</td><td>Work is done</td></tr>
<tr><td>3</td><td>3.1</td><td>Numeric cell must not open an element</td></tr>
</table></body></html>`

	rec := Extract(html, "")
	require.Len(t, rec.Elements, 2)
	require.Equal(t, []string{
		"1.1 Work is planned",
		"1.2 Tools are selected",
		"Extra continuation text",
	}, rec.Elements[0].PerformanceCriteria)
	require.Equal(t, "2. Do work", rec.Elements[1].Title)
	require.Equal(t, []string{
		"2.1 Work is done",
		"3.1 Numeric cell must not open an element",
	}, rec.Elements[1].PerformanceCriteria)
}

func TestExtractEvidenceGrouping(t *testing.T) {
	t.Parallel()

	rec := Extract(samplePage, "")

	require.Len(t, rec.PerformanceEvidence, 2)
	require.Equal(t, "operate marine radio equipment including:", rec.PerformanceEvidence[0].Topic)
	require.Equal(t, []string{"VHF radio", "HF radio"}, rec.PerformanceEvidence[0].Items)
	require.Equal(t, "respond to distress calls", rec.PerformanceEvidence[1].Topic)

	// The colon preamble line is suppressed and adjacent duplicate topics
	// collapse.
	topics := make([]string, 0, len(rec.KnowledgeEvidence))
	for _, g := range rec.KnowledgeEvidence {
		topics = append(topics, g.Topic)
	}
	require.Equal(t, []string{"radio protocols", "emergency procedures"}, topics)
}

func TestExtractHeaderSubtitleIdentity(t *testing.T) {
	t.Parallel()

	html := `<html><body><header><h1>MARB027</h1><div class="subtitle">Operate inboard and outboard motors</div></header></body></html>`
	rec := Extract(html, "")
	require.Equal(t, "MARB027", rec.Code)
	require.Equal(t, "Operate inboard and outboard motors", rec.Title)
}

func TestExtractUnitOfCompetencyHeading(t *testing.T) {
	t.Parallel()

	html := `<html><body><h2>Unit of Competency: HLTAID011</h2><h2>Provide First Aid</h2></body></html>`
	rec := Extract(html, "")
	require.Equal(t, "HLTAID011", rec.Code)
	require.Equal(t, "Provide First Aid", rec.Title)
}

func TestExtractNeverFailsOnArbitraryInput(t *testing.T) {
	t.Parallel()

	for _, html := range []string{"", "<<<>>>", "plain text", "<html><body></body></html>"} {
		rec := Extract(html, "https://catalog.example/unit/X")
		require.Equal(t, "Unknown", rec.Code)
		require.Equal(t, "Unknown", rec.Title)
	}
}

func TestExtractPrerequisitesRetokenized(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h2>Prerequisite Units</h2>
<p>Completion of MARB027 and MARB027 plus HLTAID011 is required.</p>
<h2>Unit Sector</h2><p>Maritime</p>
</body></html>`
	rec := Extract(html, "")
	require.Equal(t, []string{"MARB027", "HLTAID011"}, rec.Prerequisites)
}

func TestGenericSectionsBackstop(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h2>Range of Conditions</h2>
<p>Applies to coastal waters.</p>
<ul><li>day operations<ul><li>ignored nested</li></ul></li><li>night operations</li></ul>
<h3>Notes</h3>
<p>None.</p>
</body></html>`
	rec := Extract(html, "")
	require.Len(t, rec.Sections, 2)
	require.Equal(t, "Range of Conditions", rec.Sections[0].Heading)
	require.Equal(t, 2, rec.Sections[0].Level)
	require.Equal(t, []string{"Applies to coastal waters."}, rec.Sections[0].Paragraphs)
	require.Equal(t, []string{"day operations", "night operations"}, rec.Sections[0].Items)
	require.Equal(t, "Notes", rec.Sections[1].Heading)
}

func TestTextWindowRunsToEndWithoutBoundary(t *testing.T) {
	t.Parallel()

	window := textWindow("Assessment Conditions: must be observed at sea.", "assessment conditions")
	require.Contains(t, window, "must be observed at sea.")
}
