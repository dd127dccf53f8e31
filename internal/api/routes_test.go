package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valgkart/internal/boundary"
	"valgkart/internal/color"
	"valgkart/internal/layer"
	"valgkart/internal/mapbuild"
	"valgkart/internal/region"
	"valgkart/internal/results"
)

func precincts(codes ...float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, c := range codes {
		x := 10.0 + float64(i)*0.1
		f := geojson.NewFeature(orb.Polygon{{{x, 63}, {x + 0.1, 63}, {x + 0.1, 63.1}, {x, 63.1}, {x, 63}}})
		f.Properties[boundary.PrecinctCodeKey] = c
		f.Properties["valgkretsnavn"] = "Krets"
		fc.Append(f)
	}
	return fc
}

func service(t *testing.T) *Service {
	t.Helper()
	tbl, err := results.New([]results.Record{
		{Region: region.RegionCode{County: "50", Municipality: "5001", Precinct: "0101"}, Party: "Høyre", Share: 40,
			Names: results.DisplayNames{County: "Trøndelag", Municipality: "Trondheim"}},
		{Region: region.RegionCode{County: "50", Municipality: "5001", Precinct: "0102"}, Party: "Rødt", Share: 20,
			Names: results.DisplayNames{County: "Trøndelag", Municipality: "Trondheim"}},
		{Region: region.RegionCode{County: "03", Municipality: "0301", Precinct: "0101"}, Party: "Venstre", Share: 12,
			Names: results.DisplayNames{County: "Oslo", Municipality: "Oslo"}},
	})
	require.NoError(t, err)
	colors, err := color.New(color.Default())
	require.NoError(t, err)
	return &Service{
		Tables: StaticTable{T: tbl},
		Deps: mapbuild.Deps{
			Precincts:      boundary.NewRepository("krets", boundary.MapLoader{"5001": precincts(101, 102, 103)}, boundary.PrecinctCodeKey),
			Municipalities: boundary.NewRepository("kommune", boundary.MapLoader{}, boundary.MunicipalityCodeKey),
			Layers:         layer.NewBuilder(colors, layer.OtherBucket),
		},
		Zoom:     10,
		Election: "test",
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLayersRoute(t *testing.T) {
	h := BuildRoutes(service(t))
	rec := get(t, h, "/layers?kommune=5001&layering=category")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get("x-cache"))

	var doc struct {
		Layers []struct {
			Label string `json:"label"`
		} `json:"layers"`
		Flagged []string `json:"flagged"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Layers, 3)
	assert.Equal(t, "Høyre", doc.Layers[0].Label)
	assert.Equal(t, "Rødt", doc.Layers[1].Label)
	assert.Equal(t, "Ingen data", doc.Layers[2].Label)
	assert.Equal(t, []string{"50/5001/0103"}, doc.Flagged)
}

func TestLayersRouteErrors(t *testing.T) {
	h := BuildRoutes(service(t))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/layers").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/layers?kommune=5001&granularity=by").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/layers?kommune=5001&rule=party").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/layers?kommune=5001&layering=choropleth").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/layers?kommune=abc").Code)

	rec := get(t, h, "/layers?kommune=0301")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0301", body.Code)
}

func TestKommunerRoute(t *testing.T) {
	h := BuildRoutes(service(t))
	rec := get(t, h, "/kommuner?fylke=50")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []CodeName
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []CodeName{{Code: "5001", Name: "Trondheim"}}, got)

	rec = get(t, h, "/kommuner")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/kommuner?fylke=x").Code)
}

func TestFylkerAndPartier(t *testing.T) {
	h := BuildRoutes(service(t))
	var counties []CodeName
	require.NoError(t, json.Unmarshal(get(t, h, "/fylker").Body.Bytes(), &counties))
	assert.Equal(t, []CodeName{{"50", "Trøndelag"}, {"03", "Oslo"}}, counties)

	var parties []string
	require.NoError(t, json.Unmarshal(get(t, h, "/partier").Body.Bytes(), &parties))
	assert.Equal(t, []string{"Høyre", "Rødt", "Venstre"}, parties)
}

func TestStatsWithoutStore(t *testing.T) {
	h := BuildRoutes(service(t))
	rec := get(t, h, "/stats")
	assert.JSONEq(t, `{"total":0,"today":0}`, rec.Body.String())
	rec = get(t, h, "/mangler")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestReload(t *testing.T) {
	h := BuildRoutes(service(t))
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, h, "/reload").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reloaded":false}`, rec.Body.String())

	st := &StoreTable{}
	svc := service(t)
	svc.Tables = st
	rec = httptest.NewRecorder()
	BuildRoutes(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	assert.JSONEq(t, `{"reloaded":true}`, rec.Body.String())
}

// swapTable：Reset 后切换到下一份结果表
type swapTable struct {
	tables []*results.Table
	cur    int
}

func (s *swapTable) Table(context.Context) (*results.Table, error) { return s.tables[s.cur], nil }
func (s *swapTable) Reset() { s.cur++ }

func TestReloadRebuildsLayers(t *testing.T) {
	svc := service(t)
	before, err := svc.Tables.Table(context.Background())
	require.NoError(t, err)
	after, err := results.New([]results.Record{
		{Region: region.RegionCode{County: "50", Municipality: "5001", Precinct: "0101"}, Party: "Rødt", Share: 45,
			Names: results.DisplayNames{County: "Trøndelag", Municipality: "Trondheim"}},
	})
	require.NoError(t, err)
	svc.Tables = &swapTable{tables: []*results.Table{before, after}}
	h := BuildRoutes(svc)

	req := httptest.NewRequest(http.MethodGet, "/layers?kommune=5001&layering=category", nil)
	keyBefore := svc.cacheKey(req)
	labels := func() []string {
		rec := get(t, h, "/layers?kommune=5001&layering=category")
		require.Equal(t, http.StatusOK, rec.Code)
		var doc struct {
			Layers []struct {
				Label string `json:"label"`
			} `json:"layers"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		var out []string
		for _, l := range doc.Layers {
			out = append(out, l.Label)
		}
		return out
	}
	assert.Equal(t, []string{"Høyre", "Rødt", "Ingen data"}, labels())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	assert.JSONEq(t, `{"reloaded":true}`, rec.Body.String())

	assert.NotEqual(t, keyBefore, svc.cacheKey(req))
	assert.Equal(t, []string{"Rødt", "Ingen data"}, labels())
}

func TestParseLayerQuery(t *testing.T) {
	lq, err := parseLayerQuery(url.Values{"fylke": {"50"}}, 9)
	require.NoError(t, err)
	assert.Equal(t, region.LevelCounty, lq.cfg.Granularity)
	assert.Equal(t, []region.Code{"50"}, lq.targets)
	assert.Equal(t, 9, lq.cfg.Zoom)

	lq, err = parseLayerQuery(url.Values{"kommune": {"301, 5001"}, "rule": {"winner-is"}, "party": {"Høyre"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []region.Code{"0301", "5001"}, lq.targets)
	assert.Equal(t, region.LevelPrecinct, lq.cfg.Granularity)
	assert.Equal(t, "winner-is:Høyre", lq.cfg.Rule.Name())

	_, err = parseLayerQuery(url.Values{"kommune": {"5001"}, "granularity": {"county"}}, 10)
	assert.Error(t, err)
}

func TestBloomPositions(t *testing.T) {
	a := bloomPositions([]byte("50/5001/0103"), bloomBits, bloomHashes)
	b := bloomPositions([]byte("50/5001/0103"), bloomBits, bloomHashes)
	require.Len(t, a, bloomHashes)
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.True(t, p >= 0 && p < bloomBits)
	}
	assert.NotEqual(t, a, bloomPositions([]byte("50/5001/0104"), bloomBits, bloomHashes))
}

func TestFreshFlaggedWithoutRedis(t *testing.T) {
	codes := []region.RegionCode{{County: "50", Municipality: "5001", Precinct: "0103"}}
	assert.Equal(t, codes, freshFlagged(context.Background(), nil, "x", codes, time.Now()))
}
