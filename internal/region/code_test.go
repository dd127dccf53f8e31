package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadRoundTrip(t *testing.T) {
	for n := 0; n <= 9999; n++ {
		c := Pad(n, MunicipalityWidth)
		require.Len(t, string(c), 4)
		require.Equal(t, n, c.Int())
	}
}

func TestParseCode(t *testing.T) {
	cases := []struct {
		in      string
		width   int
		want    Code
		wantErr bool
	}{
		{"101", 4, "0101", false},
		{"0101", 4, "0101", false},
		{" 5001 ", 4, "5001", false},
		{"5001.0", 4, "5001", false},
		{"3", 2, "03", false},
		{"5001.5", 4, "", true},
		{"", 4, "", true},
		{"abc", 4, "", true},
		{"-1", 4, "", true},
	}
	for _, tc := range cases {
		got, err := ParseCode(tc.in, tc.width)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCodeFromAny(t *testing.T) {
	c, err := CodeFromAny(float64(101), PrecinctWidth)
	require.NoError(t, err)
	assert.Equal(t, Code("0101"), c)

	c, err = CodeFromAny("0102", PrecinctWidth)
	require.NoError(t, err)
	assert.Equal(t, Code("0102"), c)

	_, err = CodeFromAny(1.5, PrecinctWidth)
	assert.Error(t, err)
	_, err = CodeFromAny(nil, PrecinctWidth)
	assert.Error(t, err)
	_, err = CodeFromAny(true, PrecinctWidth)
	assert.Error(t, err)
}

func TestLeadingZerosAreSignificant(t *testing.T) {
	// 0301 与 301 补零后相等；与 3010 不等
	a, _ := ParseCode("301", 4)
	b, _ := ParseCode("0301", 4)
	c, _ := ParseCode("3010", 4)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsWholeArea(t *testing.T) {
	assert.True(t, IsWholeArea("0000", ""))
	assert.True(t, IsWholeArea("0", ""))
	assert.False(t, IsWholeArea("", ""))
	assert.True(t, IsWholeArea("0001", WholeAreaName))
	assert.False(t, IsWholeArea("0101", "Sentrum"))
}

func TestRegionCodeTruncate(t *testing.T) {
	rc := RegionCode{County: "50", Municipality: "5001", Precinct: "0101"}
	assert.Equal(t, RegionCode{County: "50"}, rc.Truncate(LevelCounty))
	assert.Equal(t, RegionCode{County: "50", Municipality: "5001"}, rc.Truncate(LevelMunicipality))
	assert.Equal(t, rc, rc.Truncate(LevelPrecinct))
	assert.Equal(t, Code("5001"), rc.Key(LevelMunicipality))
	assert.Equal(t, "50/5001/0101", rc.String())
	assert.False(t, rc.WholeArea())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("krets")
	require.True(t, ok)
	assert.Equal(t, LevelPrecinct, l)
	_, ok = ParseLevel("planet")
	assert.False(t, ok)
}
