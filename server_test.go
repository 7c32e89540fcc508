package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &fakeProvider{features: []Feature{
		{ID: int64(1), Geometry: orb.Point{-178.0, 84.91}, Properties: geojson.Properties{"name": "station"}},
	}}
	g, _ := newTestGenerator(t, map[string]*Layer{"pois": poisTestLayer()}, provider, 0)
	return newRouter(g)
}

func doRequest(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestServeHealth(t *testing.T) {
	r := newTestRouter(t)
	w := doRequest(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeTile(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, "/tiles/pois/10/5/5.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)
}

func TestServeTileUnknownLayer(t *testing.T) {
	r := newTestRouter(t)
	w := doRequest(r, "/tiles/nope/10/5/5.json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeTileBadRequests(t *testing.T) {
	r := newTestRouter(t)

	// missing format extension
	assert.Equal(t, http.StatusBadRequest, doRequest(r, "/tiles/pois/10/5/5").Code)
	// unsupported format
	assert.Equal(t, http.StatusBadRequest, doRequest(r, "/tiles/pois/10/5/5.xml").Code)
	// zoom out of range
	assert.Equal(t, http.StatusBadRequest, doRequest(r, "/tiles/pois/23/0/0.json").Code)
	// non-numeric coordinate
	assert.Equal(t, http.StatusBadRequest, doRequest(r, "/tiles/pois/abc/0/0.json").Code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForError(ErrLayerNotFound{Layer: "x"}))
	assert.Equal(t, http.StatusBadRequest, statusForError(ErrUnsupportedFormat{Format: "x"}))
	assert.Equal(t, http.StatusGatewayTimeout, statusForError(ErrBuildTimeout))
	assert.Equal(t, http.StatusBadGateway, statusForError(DataSourceError{Query: "q", Err: errTestSource}))
	assert.Equal(t, http.StatusInternalServerError, statusForError(ConfigError{Reason: "x"}))
	assert.Equal(t, http.StatusInternalServerError, statusForError(TransformError{Layer: "x", Step: "s", Err: errTestSource}))
}
