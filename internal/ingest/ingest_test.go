package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valgkart/internal/store"
)

const csvBody = "Fylkenummer;Fylkenavn;Kommunenummer;Kommunenavn;Stemmekretsnummer;Stemmekretsnavn;Partinavn;Oppslutning prosentvis\n" +
	"50;Trøndelag;5001;Trondheim;0101;Byåsen;Høyre;31,5\n"

func serve(t *testing.T, status int, ctype, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctype != "" {
			w.Header().Set("content-type", ctype)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, ".json", formatOf("application/json; charset=utf-8", "http://x/a.csv"))
	assert.Equal(t, ".csv", formatOf("text/csv", "http://x/a.json"))
	assert.Equal(t, ".json", formatOf("application/octet-stream", "http://x/parti.JSON?v=2"))
	assert.Equal(t, ".csv", formatOf("", "http://x/resultater"))
}

func TestFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, "text/csv", csvBody)
	tbl, err := Fetch(context.Background(), srv.Client(), srv.URL+"/resultater.csv")
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "Høyre", tbl.Records()[0].Party)
	assert.InDelta(t, 31.5, tbl.Records()[0].Share, 1e-9)
}

func TestFetchBadStatus(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "", "")
	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	assert.ErrorContains(t, err, "status 404")
}

func TestFetchAndImport(t *testing.T) {
	srv := serve(t, http.StatusOK, "", csvBody)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM _valg_resultater")).WithArgs("2023").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`COPY "_valg_resultater"`))
	prep.ExpectExec().WithArgs("2023", "50", "Trøndelag", "5001", "Trondheim", "0101", "Byåsen", "Høyre", 31.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := FetchAndImport(context.Background(), srv.Client(), store.AttachDB(db), "2023", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureInitializedSkipsKnownElection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT DISTINCT valg").WillReturnRows(sqlmock.NewRows([]string{"valg"}).AddRow("2019").AddRow("2023"))

	require.NoError(t, EnsureInitialized(context.Background(), nil, store.AttachDB(db), "2023", "http://unused.invalid"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextDailyAt(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2023, 9, 11, 3, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2023, 9, 11, 4, 0, 0, 0, loc), nextDailyAt(now, loc, 4))
	assert.Equal(t, time.Date(2023, 9, 12, 3, 0, 0, 0, loc), nextDailyAt(now, loc, 3))

	end := time.Date(2023, 9, 30, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2023, 10, 1, 4, 0, 0, 0, loc), nextDailyAt(end, loc, 4))
}

func TestRefreshHour(t *testing.T) {
	t.Setenv("INGEST_HOUR", "")
	assert.Equal(t, 4, RefreshHour())
	t.Setenv("INGEST_HOUR", "23")
	assert.Equal(t, 23, RefreshHour())
	t.Setenv("INGEST_HOUR", "24")
	assert.Equal(t, 4, RefreshHour())
}
