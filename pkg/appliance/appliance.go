package appliance

import (
	"time"

	"github.com/tendant/simple-oxtrust/pkg/cache"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

// Appliance describes the server instance this admin backend runs on.
// LastUpdate is refreshed by Heartbeat and read by the health check.
type Appliance struct {
	persistence.BaseEntry
	Inum               string        `json:"inum"`
	DisplayName        string        `json:"displayName"`
	Description        string        `json:"description,omitempty"`
	LastUpdate         *time.Time    `json:"gluuLastUpdate,omitempty"`
	CacheConfiguration *cache.Config `json:"oxCacheConfiguration,omitempty"`
	PersistenceType    string        `json:"gluuPersistenceType,omitempty"`
}

func (Appliance) ObjectClass() string { return "gluuAppliance" }

// HealthStatus is the result of a health check
type HealthStatus string

const (
	HealthOK   HealthStatus = "OK"
	HealthFail HealthStatus = "FAIL"
)
