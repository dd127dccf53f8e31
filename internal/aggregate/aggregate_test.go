package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valgkart/internal/region"
	"valgkart/internal/results"
)

func rec(party string, share float64) results.Record {
	return results.Record{
		Region: region.RegionCode{County: "50", Municipality: "5001", Precinct: "0101"},
		Party:  party,
		Share:  share,
	}
}

func TestWinnerPicksMaximum(t *testing.T) {
	r, ok := Winner([]results.Record{rec("A", 10), rec("B", 42.5), rec("C", 30)})
	require.True(t, ok)
	assert.Equal(t, "B", r.Party)
	assert.Equal(t, 42.5, r.Share)
}

func TestWinnerTieFirstOccurrence(t *testing.T) {
	r, ok := Winner([]results.Record{rec("A", 10), rec("B", 30), rec("C", 30)})
	require.True(t, ok)
	assert.Equal(t, "B", r.Party)
}

func TestWinnerEmpty(t *testing.T) {
	_, ok := Winner(nil)
	assert.False(t, ok)
}

func TestWinnerProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(8)
		recs := make([]results.Record, n)
		for j := range recs {
			// 粗粒度取值以制造并列
			recs[j] = rec(string(rune('A'+j)), float64(rng.Intn(5))*10)
		}
		w, ok := Winner(recs)
		require.True(t, ok)
		first := -1
		for j, r := range recs {
			require.LessOrEqual(t, r.Share, w.Share)
			if first < 0 && r.Share == w.Share {
				first = j
			}
		}
		assert.Equal(t, recs[first].Party, w.Party)
	}
}

func TestValueForParty(t *testing.T) {
	recs := []results.Record{rec("A", 10), rec("B", 20)}
	r, ok := ValueForParty(recs, "B")
	require.True(t, ok)
	assert.Equal(t, 20.0, r.Share)
	_, ok = ValueForParty(recs, "Rødt")
	assert.False(t, ok)
}

func TestRules(t *testing.T) {
	recs := []results.Record{rec("A", 10), rec("B", 20)}

	r, ok := WinnerRule{}.Select(recs)
	require.True(t, ok)
	assert.Equal(t, "B", r.Party)

	_, ok = WinnerIsRule{Party: "A"}.Select(recs)
	assert.False(t, ok)
	r, ok = WinnerIsRule{Party: "B"}.Select(recs)
	require.True(t, ok)
	assert.Equal(t, "B", r.Party)

	r, ok = PartyRule{Party: "A"}.Select(recs)
	require.True(t, ok)
	assert.Equal(t, 10.0, r.Share)
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("", "")
	require.NoError(t, err)
	assert.Equal(t, "winner", r.Name())

	r, err = ParseRule("winner-is", "Høyre")
	require.NoError(t, err)
	assert.Equal(t, "winner-is:Høyre", r.Name())

	_, err = ParseRule("party", "")
	assert.Error(t, err)
	_, err = ParseRule("median", "")
	assert.Error(t, err)
}

func TestFormatShare(t *testing.T) {
	assert.Equal(t, "(55.00 %)", Result{Share: 55}.FormatShare())
	assert.Equal(t, "(5.25 %)", Result{Share: 5.25}.FormatShare())
	assert.Equal(t, "(- %)", NoData(region.RegionCode{}).FormatShare())
}
