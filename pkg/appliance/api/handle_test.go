package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/appliance"
	"github.com/tendant/simple-oxtrust/pkg/cache"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

func TestApplianceRoutes(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := appliance.NewApplianceService(persistence.NewInMemoryEntryStore(), "@!1111!0002", "o=gluu",
		appliance.WithClock(func() time.Time { return now }))
	router := Routes(NewHandle(svc, appliance.NewHealthChecker(svc)))

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/health")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"APPLIANCE_NOT_FOUND"`)
	rec = get("/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := svc.EnsureAppliance(context.Background(), "Gluu Server", &cache.Config{Provider: cache.ProviderInMemory})
	require.NoError(t, err)

	rec = get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, appliance.HealthOK, health.Status)
	require.NotNil(t, health.LastUpdate)
	assert.True(t, now.Equal(*health.LastUpdate))

	rec = get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	var body ApplianceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Gluu Server", body.DisplayName)
	assert.Equal(t, "In-memory", body.PersistenceType)
	assert.Equal(t, "IN_MEMORY", body.CacheProvider)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusServiceUnavailable, get("/health").Code)
}
