package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okazje-ingest/internal/cache"
	"okazje-ingest/internal/handlers"
	"okazje-ingest/internal/ingest"
	"okazje-ingest/internal/logger"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository/memory"
)

type stubAdapter struct{}

func (stubAdapter) Vendor() models.VendorID { return models.VendorEbay }
func (stubAdapter) MaxPageSize() int        { return 200 }

func (stubAdapter) Search(_ context.Context, p marketplace.SearchParams) (*marketplace.SearchResult, error) {
	return &marketplace.SearchResult{Page: p.Page, Items: []marketplace.Item{{
		ID:     "v1|1|0",
		Title:  "Lego",
		URL:    "https://www.ebay.pl/itm/1",
		Images: []string{"https://i.ebayimg.com/1.jpg"},
		Price:  99,
	}}}, nil
}

func (stubAdapter) GetDetails(_ context.Context, id string) (*marketplace.Item, error) {
	if id == "missing" {
		return nil, &marketplace.APIError{Vendor: models.VendorEbay, StatusCode: http.StatusNotFound, Code: "11001", Message: "item not found"}
	}
	return &marketplace.Item{ID: id, Title: "Lego", Price: 99}, nil
}

type apiFixture struct {
	router *gin.Engine
	mem    *memory.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := memory.NewStore()
	vendors := marketplace.NewRegistry(stubAdapter{})
	orch := ingest.NewOrchestrator(ingest.Options{
		Store:   mem.Repository(),
		Vendors: vendors,
		Log:     logger.Discard(),
	})
	h := handlers.NewImportHandler(mem.Profiles, mem.Runs, orch, vendors, cache.New(ctx, time.Minute, 0), logger.Discard())

	router := gin.New()
	auth := func(c *gin.Context) {
		c.Set("uid", "admin-1")
		c.Next()
	}
	RegisterRoutes(router, h, auth)
	return &apiFixture{router: router, mem: mem}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func profileBody() map[string]any {
	return map[string]any{
		"vendorId": "ebay",
		"name":     "LEGO",
		"enabled":  true,
		"filters":  map[string]any{"searchQuery": "lego"},
		"mapping": map[string]any{
			"targetMainCategory": "zabawki",
			"targetSubCategory":  "klocki",
			"defaultStatus":      "draft",
		},
		"maxItemsPerRun":        20,
		"deduplicationStrategy": "skip",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	w := newAPI(t).do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestProfileLifecycle(t *testing.T) {
	api := newAPI(t)

	w := api.do(t, http.MethodPost, "/v1/import-profiles", profileBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.ImportProfile](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "admin-1", created.CreatedBy)

	w = api.do(t, http.MethodGet, "/v1/import-profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := profileBody()
	body["name"] = "LEGO Technic"
	w = api.do(t, http.MethodPut, "/v1/import-profiles/"+created.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.ImportProfile](t, w)
	assert.Equal(t, "LEGO Technic", updated.Name)
	assert.Equal(t, "admin-1", updated.CreatedBy)

	w = api.do(t, http.MethodGet, "/v1/import-profiles", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data  []models.ImportProfile `json:"data"`
		Total int                    `json:"total"`
	}](t, w)
	assert.Equal(t, 1, list.Total)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/import-profiles/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPut, "/v1/import-profiles/nope", profileBody()).Code)
}

func TestCreateProfile_Invalid(t *testing.T) {
	api := newAPI(t)

	body := profileBody()
	body["vendorId"] = "temu"
	w := api.do(t, http.MethodPost, "/v1/import-profiles", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VendorID")

	body = profileBody()
	body["filters"] = map[string]any{"searchQuery": "lego", "minPrice": 100, "maxPrice": 10}
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/v1/import-profiles", body).Code)
}

func TestStartRun(t *testing.T) {
	api := newAPI(t)
	w := api.do(t, http.MethodPost, "/v1/import-profiles", profileBody())
	require.Equal(t, http.StatusCreated, w.Code)
	profile := decode[models.ImportProfile](t, w)

	w = api.do(t, http.MethodGet, "/v1/import-runs", nil)
	assert.Contains(t, w.Body.String(), `"total":0`)

	w = api.do(t, http.MethodPost, "/v1/import-profiles/"+profile.ID+"/runs?dryRun=true", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode[models.ImportRun](t, w)
	assert.True(t, run.DryRun)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, models.TriggerManual, run.TriggeredBy)
	assert.Equal(t, "admin-1", run.TriggeredByUID)
	assert.Equal(t, 1, run.Stats.WouldCreate)
	assert.Empty(t, api.mem.Products.All())

	// the cached empty listing was invalidated by the new run
	w = api.do(t, http.MethodGet, "/v1/import-runs", nil)
	assert.Contains(t, w.Body.String(), `"total":1`)
	w = api.do(t, http.MethodGet, "/v1/import-runs?profileId="+profile.ID, nil)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = api.do(t, http.MethodGet, "/v1/import-runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/import-runs/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/import-runs?limit=x", nil).Code)

	w = api.do(t, http.MethodPost, "/v1/import-profiles/"+profile.ID+"/runs", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, api.mem.Products.All(), 1)
}

func TestStartRun_Errors(t *testing.T) {
	api := newAPI(t)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/v1/import-profiles/nope/runs", nil).Code)

	body := profileBody()
	body["enabled"] = false
	w := api.do(t, http.MethodPost, "/v1/import-profiles", body)
	require.Equal(t, http.StatusCreated, w.Code)
	profile := decode[models.ImportProfile](t, w)

	w = api.do(t, http.MethodPost, "/v1/import-profiles/"+profile.ID+"/runs", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"profile is disabled"}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/v1/import-profiles/"+profile.ID+"/runs?dryRun=maybe", nil).Code)
}

func TestPreviewItem(t *testing.T) {
	api := newAPI(t)

	w := api.do(t, http.MethodGet, "/v1/vendors/ebay/items/v1%7C1%7C0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := decode[marketplace.Item](t, w)
	assert.Equal(t, "v1|1|0", item.ID)

	w = api.do(t, http.MethodGet, "/v1/vendors/ebay/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "11001")

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/vendors/amazon/items/1", nil).Code)
}
