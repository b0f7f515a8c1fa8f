package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ClientTier is the service tier purchased by a client.
type ClientTier string

const (
	ClientTierBronze  ClientTier = "bronze"
	ClientTierSilver  ClientTier = "silver"
	ClientTierGold    ClientTier = "gold"
	ClientTierPremium ClientTier = "premium"
)

// ClientStatus is the lifecycle state of a client account.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusInactive  ClientStatus = "inactive"
	ClientStatusSuspended ClientStatus = "suspended"
	ClientStatusPending   ClientStatus = "pending"
)

// ClientIDPattern restricts client ids to lower-case slugs.
var ClientIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Client is a managed-service customer.
type Client struct {
	ID           string                 `json:"id"`                      // slug, e.g. "acme-corp"
	Name         string                 `json:"name"`                    // display name
	ContactEmail string                 `json:"contact_email,omitempty"` // primary contact
	Tier         ClientTier             `json:"tier"`
	Status       ClientStatus           `json:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// IsActive reports whether the client should be included in fleet runs.
func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// ClientFilter narrows ClientManager.List. Empty fields match everything.
type ClientFilter struct {
	Tier   ClientTier
	Status ClientStatus
	Search string // case-insensitive match on id or name
}

// ClientUpdate carries the mutable fields of a client; nil fields are left untouched.
type ClientUpdate struct {
	Name         *string
	ContactEmail *string
	Tier         *ClientTier
	Status       *ClientStatus
	Metadata     map[string]interface{}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SlugFromName derives a client id from a display name ("Acme Corp." -> "acme-corp").
func SlugFromName(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// DeviceType classifies a managed endpoint.
type DeviceType string

const (
	DeviceTypeWorkstation DeviceType = "workstation"
	DeviceTypeServer      DeviceType = "server"
	DeviceTypeNetwork     DeviceType = "network"
	DeviceTypeMobile      DeviceType = "mobile"
	DeviceTypeOther       DeviceType = "other"
)

// Device is an endpoint tracked for a client.
type Device struct {
	ID          int64                  `json:"id"`
	ClientID    string                 `json:"client_id"`
	Name        string                 `json:"name"`
	Type        DeviceType             `json:"type"`
	RMMDeviceID string                 `json:"rmm_device_id,omitempty"` // identifier in the RMM platform
	LastSeen    *time.Time             `json:"last_seen,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// DeviceRef is the projection of a device used by the services check.
type DeviceRef struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Ref returns the services-check projection of d.
func (d *Device) Ref() DeviceRef {
	return DeviceRef{
		ID:       strconv.FormatInt(d.ID, 10),
		Name:     d.Name,
		Type:     string(d.Type),
		LastSeen: d.LastSeen,
	}
}
