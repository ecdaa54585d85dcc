package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-oxtrust/pkg/appliance"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
)

type HealthResponse struct {
	Status     appliance.HealthStatus `json:"status"`
	LastUpdate *time.Time             `json:"last_update,omitempty"`
}

type ApplianceResponse struct {
	Inum            string     `json:"inum"`
	DN              string     `json:"dn"`
	DisplayName     string     `json:"display_name"`
	Description     string     `json:"description,omitempty"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
	PersistenceType string     `json:"persistence_type,omitempty"`
	CacheProvider   string     `json:"cache_provider,omitempty"`
}

type Handle struct {
	applianceService *appliance.ApplianceService
	healthChecker    *appliance.HealthChecker
}

func NewHandle(applianceService *appliance.ApplianceService, healthChecker *appliance.HealthChecker) *Handle {
	return &Handle{
		applianceService: applianceService,
		healthChecker:    healthChecker,
	}
}

// Routes mounts the appliance endpoints on a new router
func Routes(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.GetAppliance)
	r.Get("/health", h.CheckHealth)
	return r
}

// CheckHealth handles GET /appliance/health. FAIL is reported with 503 so
// load balancers can act on the status code alone.
func (h *Handle) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status, lastUpdate, err := h.healthChecker.CheckHealth(r.Context())
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	response := HealthResponse{Status: status, LastUpdate: &lastUpdate}
	code := http.StatusOK
	if status != appliance.HealthOK {
		code = http.StatusServiceUnavailable
	}
	render.Status(r, code)
	render.JSON(w, r, response)
}

// GetAppliance handles GET /appliance
func (h *Handle) GetAppliance(w http.ResponseWriter, r *http.Request) {
	a, err := h.applianceService.GetAppliance(r.Context())
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	response := ApplianceResponse{
		Inum:            a.Inum,
		DN:              a.DN,
		DisplayName:     a.DisplayName,
		Description:     a.Description,
		LastUpdate:      a.LastUpdate,
		PersistenceType: a.PersistenceType,
	}
	if a.CacheConfiguration != nil {
		response.CacheProvider = string(a.CacheConfiguration.Provider)
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, appliance.ErrApplianceNotFound) {
		err = oxerrors.Wrap(err, oxerrors.ErrCodeApplianceNotFound, "appliance not found")
	} else {
		err = oxerrors.Wrap(err, oxerrors.ErrCodeStoreUnavailable, "appliance store unavailable")
	}
	status, response := oxerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, response)
}
