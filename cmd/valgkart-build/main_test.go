package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsCSV = "Fylkenummer;Fylkenavn;Kommunenummer;Kommunenavn;Stemmekretsnummer;Stemmekretsnavn;Partinavn;Oppslutning prosentvis\n" +
	"50;Trøndelag;5001;Trondheim;0001;Sentrum;Høyre;55,0\n" +
	"50;Trøndelag;5001;Trondheim;0002;Lade;Arbeiderpartiet;60,0\n"

const krets = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"valgkretsnummer":1},"geometry":{"type":"Polygon","coordinates":[[[10,63],[10.1,63],[10.1,63.1],[10,63]]]}},
{"type":"Feature","properties":{"valgkretsnummer":%d},"geometry":{"type":"Polygon","coordinates":[[[10.1,63],[10.2,63],[10.2,63.1],[10.1,63]]]}}]}`

func setup(t *testing.T, second int) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "resultater.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(resultsCSV), 0o644))
	doc := []byte(fmtKrets(second))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "krets-5001.geojson"), doc, 0o644))
	t.Setenv("RESULTS_FILE", csvPath)
	t.Setenv("RESULTS_SOURCE", "file")
	t.Setenv("KRETS_DIR", dir)
	t.Setenv("KRETS_PREFIX", "krets")
	t.Setenv("PARTY_COLORS_FILE", "")
	t.Setenv("BUILD_GRANULARITY", "")
	t.Setenv("BUILD_RULE", "")
	t.Setenv("BUILD_LAYERING", "")
	t.Setenv("LOG_LEVEL", "error")

	stdout := os.Stdout
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	os.Stdout = devnull
	t.Cleanup(func() {
		os.Stdout = stdout
		devnull.Close()
	})
}

func fmtKrets(second int) string {
	return fmt.Sprintf(krets, second)
}

func TestRunExitCodes(t *testing.T) {
	setup(t, 2)
	assert.Equal(t, 1, run(nil))
	assert.Equal(t, 1, run([]string{"x"}))
	assert.Equal(t, 0, run([]string{"5001"}))
	assert.Equal(t, 1, run([]string{"5099"}))

	t.Setenv("BUILD_RULE", "nonsense")
	assert.Equal(t, 1, run([]string{"5001"}))
}

func TestRunFlagged(t *testing.T) {
	setup(t, 3)
	assert.Equal(t, 2, run([]string{"5001"}))
}
