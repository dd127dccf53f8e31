package color

import (
	"errors"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New(Default())
	require.NoError(t, err)
	return r
}

func TestColorForKnown(t *testing.T) {
	r := resolver(t)
	assert.Equal(t, "#d62728", r.ColorFor("Arbeiderpartiet"))
	assert.Equal(t, "#1f77b4", r.ColorFor("Høyre"))
	assert.True(t, r.Known("Rødt"))
}

func TestColorForIsTotal(t *testing.T) {
	r := resolver(t)
	for _, c := range []string{"", "Piratpartiet", "Partiet De Kristne", "høyre", "\x00"} {
		got := r.ColorFor(c)
		_, err := colorful.Hex(got)
		assert.NoError(t, err, c)
		assert.Equal(t, FallbackColor, got)
		assert.False(t, r.Known(c))
	}
}

func TestInjectedTable(t *testing.T) {
	r, err := New(Table{
		Parties:        []PartyColor{{"A", "#000000"}, {"B", "#ffffff"}},
		Definitions:    map[string][]string{"grey": {"#000000", "#ffffff"}},
		Palettes:       map[string]string{"A": "grey"},
		Fallback:       "#123456",
		DefaultPalette: "grey",
	})
	require.NoError(t, err)
	assert.Equal(t, "#000000", r.ColorFor("A"))
	assert.Equal(t, "#123456", r.ColorFor("C"))
	assert.Equal(t, "grey", r.PaletteFor("B"))
	assert.Equal(t, []LegendEntry{{"A", "#000000"}, {"B", "#ffffff"}}, r.Legend())
}

func TestNewRejectsBadTable(t *testing.T) {
	_, err := New(Table{Parties: []PartyColor{{"A", "red"}}, Definitions: Default().Definitions})
	assert.Error(t, err)
	_, err = New(Table{Palettes: map[string]string{"A": "nope"}, Definitions: Default().Definitions})
	assert.Error(t, err)
}

func TestPaletteFor(t *testing.T) {
	r := resolver(t)
	assert.Equal(t, "Reds_03", r.PaletteFor("Arbeiderpartiet"))
	assert.Equal(t, "viridis", r.PaletteFor("Venstre"))
}

func TestColorForContinuous(t *testing.T) {
	r := resolver(t)
	lo, err := r.ColorForContinuous(10, 10, 50, "Reds_03")
	require.NoError(t, err)
	assert.Equal(t, "#fee0d2", lo)
	mid, err := r.ColorForContinuous(30, 10, 50, "Reds_03")
	require.NoError(t, err)
	assert.Equal(t, "#fc9272", mid)
	hi, err := r.ColorForContinuous(50, 10, 50, "Reds_03")
	require.NoError(t, err)
	assert.Equal(t, "#de2d26", hi)

	clamped, err := r.ColorForContinuous(99, 10, 50, "Reds_03")
	require.NoError(t, err)
	assert.Equal(t, hi, clamped)
	clamped, err = r.ColorForContinuous(-5, 10, 50, "Reds_03")
	require.NoError(t, err)
	assert.Equal(t, lo, clamped)
}

func TestColorForContinuousDomainError(t *testing.T) {
	r := resolver(t)
	var de *DomainError
	_, err := r.ColorForContinuous(5, 5, 5, "Reds_03")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Reds_03", de.Palette)

	_, err = r.ColorForContinuous(5, 0, 10, "Blues_09")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "unknown palette", de.Reason)
}

func TestLegendOrder(t *testing.T) {
	l := resolver(t).Legend()
	require.Len(t, l, 11)
	assert.Equal(t, "Arbeiderpartiet", l[0].Label)
	assert.Equal(t, OtherLabel, l[len(l)-1].Label)
}
