package identify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractorFromSheets(t *testing.T) {
	t.Parallel()

	sheets := []Sheet{{
		Name: "Units",
		Rows: [][]string{
			{"Code", "Notes"},
			{"MARA022", "requires SCUBA certification"},
			{"HLTAID011", "first aid"},
		},
	}}

	extractor := NewExtractor(nil)
	require.Equal(t, []string{"HLTAID011", "MARA022"}, extractor.FromSheets(sheets))
}

func TestExtractorIdempotentAndDeduplicated(t *testing.T) {
	t.Parallel()

	sheets := []Sheet{
		{Name: "A", Rows: [][]string{{"MARB027 and MARB027 again"}}},
		{Name: "B", Rows: [][]string{{"marb027 lowercased"}}},
	}

	extractor := NewExtractor(nil)
	first := extractor.FromSheets(sheets)
	second := extractor.FromSheets(sheets)
	require.Equal(t, []string{"MARB027"}, first)
	require.Equal(t, first, second)
}

func TestExtractorDenylist(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor([]string{"BSBWHS211"})
	sheets := []Sheet{{Rows: [][]string{{"BSBWHS211", "BSBWHS311"}}}}
	require.Equal(t, []string{"BSBWHS311"}, extractor.FromSheets(sheets))
}

func TestValidCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		token string
		want  bool
	}{
		{"MARA022", true},
		{"HLTAID011", true},
		{"CPCCWHS2001A", true}, // single trailing letter is allowed
		{"MARA02", false},      // only two digits
		{"ABC12", false},       // too short
		{"ABCDEFGH12345", false},
		{"MEM05ABC", false}, // more than one letter after the last digit
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ValidCode(tc.token), tc.token)
	}
}

func TestTokensIgnoresEmbeddedRuns(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(nil)
	// The code is glued into a longer alphanumeric run and must not match.
	require.Empty(t, extractor.Tokens("XMARA022Y9TRAILING"))
	require.Equal(t, []string{"MARA022"}, extractor.Tokens("see MARA022."))
}
