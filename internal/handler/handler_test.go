package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/optimal-sites/planner/internal/config"
	"github.com/optimal-sites/planner/internal/controller"
	"github.com/optimal-sites/planner/internal/mapview"
	"github.com/optimal-sites/planner/internal/models"
	"github.com/optimal-sites/planner/internal/recommender"
)

// MockSearcher implements controller.Searcher for testing
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, c models.SearchCriteria) ([]models.Location, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func setupTestHandler(t *testing.T) (*Handler, *MockSearcher, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockSearcher := new(MockSearcher)
	logger, _ := zap.NewDevelopment()
	cfg := &config.Config{
		RequiredFields:     []string{"continent", "powerPlantType", "startDate", "endDate"},
		RecommenderTimeout: time.Second,
	}

	ctl, err := controller.New(cfg, mockSearcher, nil, logger)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go ctl.Run(ctx)
	t.Cleanup(cancel)

	handler := NewHandler(ctl, mapview.Viewport{Zoom: 2}, logger)

	engine := gin.New()
	rg := engine.Group("/api/v1")
	handler.RegisterRoutes(rg)

	return handler, mockSearcher, engine
}

func perform(engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const africaSolarBody = `{"continent": "Africa", "powerPlantType": "solar", "startDate": "2023-01-01", "endDate": "2023-06-01"}`

// waitForPhase polls the state endpoint until the search leaves pending.
func waitForPhase(t *testing.T, engine http.Handler, phase string) models.SearchStateResponse {
	t.Helper()
	var state models.SearchStateResponse
	require.Eventually(t, func() bool {
		w := perform(engine, http.MethodGet, "/api/v1/search", "")
		if w.Code != http.StatusOK {
			return false
		}
		state = models.SearchStateResponse{}
		if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
			return false
		}
		return state.Phase == phase
	}, 2*time.Second, 10*time.Millisecond)
	return state
}

func TestUpdateCriteria_Success(t *testing.T) {
	_, mockSearcher, engine := setupTestHandler(t)

	w := perform(engine, http.MethodPatch, "/api/v1/criteria", `{"continent": "Africa"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(engine, http.MethodPatch, "/api/v1/criteria", `{"powerPlantType": "wind"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CriteriaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Africa", response.Data.Continent)
	assert.Equal(t, "wind", response.Data.PowerPlantType)

	w = perform(engine, http.MethodGet, "/api/v1/criteria", "")
	assert.Equal(t, http.StatusOK, w.Code)
	mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestUpdateCriteria_InvalidRequest(t *testing.T) {
	_, _, engine := setupTestHandler(t)

	w := perform(engine, http.MethodPatch, "/api/v1/criteria", `{"continent": 7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(engine, http.MethodPatch, "/api/v1/criteria", `{"continent": "`+strings.Repeat("a", 200)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCriteria_InvalidValuesAreStored(t *testing.T) {
	_, _, engine := setupTestHandler(t)

	w := perform(engine, http.MethodPatch, "/api/v1/criteria", `{"powerPlantType": "tidal"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmit_Success(t *testing.T) {
	_, mockSearcher, engine := setupTestHandler(t)
	mockSearcher.On("Search", mock.Anything, mock.MatchedBy(func(c models.SearchCriteria) bool {
		return c.Continent == "Africa" && c.PowerPlantType == models.PlantSolar
	})).Return([]models.Location{{Latitude: 1.0, Longitude: 2.0}}, nil)

	perform(engine, http.MethodPut, "/api/v1/criteria", africaSolarBody)
	w := perform(engine, http.MethodPost, "/api/v1/search", "")

	assert.Equal(t, http.StatusAccepted, w.Code)
	var submitted models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.Equal(t, "pending", submitted.Phase)

	state := waitForPhase(t, engine, "succeeded")
	assert.Equal(t, submitted.Tag, state.Tag)
	require.Len(t, state.Locations, 1)
	assert.Equal(t, 1.0, state.Locations[0].Latitude)
	assert.Equal(t, 2.0, state.Locations[0].Longitude)
	require.NotNil(t, state.Criteria)
	assert.Equal(t, "Africa", state.Criteria.Continent)
	assert.Nil(t, state.Error)

	w = perform(engine, http.MethodGet, "/api/v1/map", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var scene MapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scene))
	assert.Equal(t, "succeeded", scene.Phase)
	assert.Equal(t, 2.0, scene.Data.Viewport.Zoom)
	require.Len(t, scene.Data.Markers, 1)
	assert.Equal(t, mapview.LatLng{Lat: 1.0, Lng: 2.0}, scene.Data.Markers[0].Position)

	mockSearcher.AssertExpectations(t)
}

func TestSubmit_InvalidDateRange(t *testing.T) {
	_, mockSearcher, engine := setupTestHandler(t)

	perform(engine, http.MethodPut, "/api/v1/criteria",
		`{"continent": "Africa", "powerPlantType": "solar", "startDate": "2023-06-01", "endDate": "2023-01-01"}`)
	w := perform(engine, http.MethodPost, "/api/v1/search", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "invalid_date_range", response.Error)

	w = perform(engine, http.MethodGet, "/api/v1/search", "")
	var state models.SearchStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "idle", state.Phase)
	assert.Empty(t, state.Locations)

	mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSubmit_MissingField(t *testing.T) {
	_, _, engine := setupTestHandler(t)

	perform(engine, http.MethodPatch, "/api/v1/criteria", `{"powerPlantType": "wind"}`)
	w := perform(engine, http.MethodPost, "/api/v1/search", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "missing_field", response.Error)
	assert.Equal(t, "continent", response.Field)
}

func TestGetState_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       string
		statusCode int
	}{
		{"network", &recommender.NetworkError{Err: assert.AnError}, recommender.KindNetwork, 0},
		{"service", &recommender.ServiceError{StatusCode: 400, Message: "Invalid boundary values provided"}, recommender.KindService, 400},
		{"malformed", &recommender.MalformedResponse{Err: assert.AnError}, recommender.KindMalformed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mockSearcher, engine := setupTestHandler(t)
			mockSearcher.On("Search", mock.Anything, mock.Anything).Return(nil, tt.err)

			perform(engine, http.MethodPut, "/api/v1/criteria", africaSolarBody)
			w := perform(engine, http.MethodPost, "/api/v1/search", "")
			require.Equal(t, http.StatusAccepted, w.Code)

			state := waitForPhase(t, engine, "failed")
			require.NotNil(t, state.Error)
			assert.Equal(t, tt.kind, state.Error.Kind)
			assert.Equal(t, tt.statusCode, state.Error.StatusCode)
			assert.NotEmpty(t, state.Error.Message)
			assert.Empty(t, state.Locations)
		})
	}
}

func TestGetMap_IdleHasNoMarkers(t *testing.T) {
	_, _, engine := setupTestHandler(t)

	w := perform(engine, http.MethodGet, "/api/v1/map", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var scene MapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scene))
	assert.Equal(t, "idle", scene.Phase)
	assert.Empty(t, scene.Data.Markers)
}

func TestGetGeoJSON(t *testing.T) {
	_, mockSearcher, engine := setupTestHandler(t)
	mockSearcher.On("Search", mock.Anything, mock.Anything).
		Return([]models.Location{{Latitude: 1.0, Longitude: 2.0}, {Latitude: 1.0, Longitude: 2.0}}, nil)

	perform(engine, http.MethodPut, "/api/v1/criteria", africaSolarBody)
	perform(engine, http.MethodPost, "/api/v1/search", "")
	waitForPhase(t, engine, "succeeded")

	w := perform(engine, http.MethodGet, "/api/v1/map/geojson", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2)
}

func TestStreamMap(t *testing.T) {
	_, mockSearcher, engine := setupTestHandler(t)
	mockSearcher.On("Search", mock.Anything, mock.Anything).
		Return([]models.Location{{Latitude: 1.0, Longitude: 2.0}}, nil)

	server := httptest.NewServer(engine)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/map/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first MapMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "scene", first.Type)
	assert.Equal(t, "idle", first.Phase)
	require.NotNil(t, first.Scene)
	assert.Empty(t, first.Scene.Markers)

	perform(engine, http.MethodPut, "/api/v1/criteria", africaSolarBody)
	perform(engine, http.MethodPost, "/api/v1/search", "")

	var added []mapview.Marker
	for len(added) == 0 {
		var msg MapMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "patch", msg.Type)
		require.NotNil(t, msg.Patch)
		added = msg.Patch.Added
	}
	require.Len(t, added, 1)
	assert.Equal(t, mapview.LatLng{Lat: 1.0, Lng: 2.0}, added[0].Position)
}
