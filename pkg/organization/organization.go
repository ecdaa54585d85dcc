package organization

import (
	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/registration"
)

// Organization is the root entry every managed entry lives under.
type Organization struct {
	persistence.BaseEntry
	Inum                      string                      `json:"inum"`
	DisplayName               string                      `json:"displayName"`
	Description               string                      `json:"description,omitempty"`
	RegistrationConfiguration *registration.Configuration `json:"oxRegistrationConfiguration,omitempty"`
}

func (Organization) ObjectClass() string { return "gluuOrganization" }
