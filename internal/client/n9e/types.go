package n9e

import (
	"strings"
	"time"

	"msp-toolkit/internal/model"
)

// TargetsResponse is the body returned by /api/n9e/targets.
type TargetsResponse struct {
	Dat TargetListData `json:"dat"`
	Err string         `json:"err"` // empty on success
}

// TargetListData wraps the target list with pagination info.
type TargetListData struct {
	List  []TargetData `json:"list"`
	Total int          `json:"total"`
}

// TargetData is a monitored host as reported by N9E.
type TargetData struct {
	ID         int64             `json:"id"`
	Ident      string            `json:"ident"` // hostname or hostname@IP
	Note       string            `json:"note"`
	Tags       []string          `json:"tags"`
	TagsMaps   map[string]string `json:"tags_maps"`
	HostIP     string            `json:"host_ip"`
	OS         string            `json:"os"`
	Unixtime   int64             `json:"unixtime"` // last heartbeat, milliseconds
	TargetUp   int               `json:"target_up"`
	RemoteAddr string            `json:"remote_addr"`
	GroupIDs   []int64           `json:"group_ids"`
	UpdateAt   int64             `json:"update_at"` // seconds
}

// TagValue returns the value of tag key, looking at tags_maps first and
// then at "key=value" entries of tags.
func (t *TargetData) TagValue(key string) (string, bool) {
	if v, ok := t.TagsMaps[key]; ok {
		return v, true
	}
	prefix := key + "="
	for _, tag := range t.Tags {
		if strings.HasPrefix(tag, prefix) {
			return strings.TrimPrefix(tag, prefix), true
		}
	}
	return "", false
}

// LastSeen returns the most recent heartbeat or update time, or nil if N9E
// never saw the host.
func (t *TargetData) LastSeen() *time.Time {
	var ts time.Time
	switch {
	case t.Unixtime > 0:
		ts = time.UnixMilli(t.Unixtime).UTC()
	case t.UpdateAt > 0:
		ts = time.Unix(t.UpdateAt, 0).UTC()
	default:
		return nil
	}
	return &ts
}

// ToDeviceRef converts the target into the projection used by the services check.
func (t *TargetData) ToDeviceRef() model.DeviceRef {
	typ := string(model.DeviceTypeServer)
	if v, ok := t.TagValue("device_type"); ok && v != "" {
		typ = v
	}
	return model.DeviceRef{
		ID:       t.Ident,
		Name:     CleanIdent(t.Ident),
		Type:     typ,
		LastSeen: t.LastSeen(),
	}
}

// CleanIdent strips the "@IP" suffix N9E appends to some idents.
func CleanIdent(ident string) string {
	if i := strings.IndexByte(ident, '@'); i >= 0 {
		return ident[:i]
	}
	return ident
}
