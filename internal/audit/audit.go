// Package audit records every data-changing operation into the owning
// household's append-only audit log. Entries are written alongside the data
// they describe, inside the same isolated schema, so exporting or purging a
// household carries its history with it.
package audit

import (
	"encoding/json"
	"time"

	"github.com/mssola/useragent"

	id "hearth/pkg/domain"
)

// Actions recorded by the service layer. One constant per mutating
// operation; reads are not audited.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one immutable audit record. There is no update or delete path
// for entries anywhere in the codebase.
type Entry struct {
	ID          id.EntityID     `json:"id"`
	ActorUserID id.UserID       `json:"actor_user_id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    id.EntityID     `json:"entity_id"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IPAddress   string          `json:"ip_address,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ActivityBucket aggregates recent activity for one (entity type, actor)
// pair inside a household.
type ActivityBucket struct {
	EntityType  string    `json:"entity_type"`
	ActorUserID id.UserID `json:"actor_user_id"`
	Count       int64     `json:"count"`
	LastAt      time.Time `json:"last_at"`
}

// Device is the parsed form of an entry's User-Agent, resolved at read time
// so the stored value stays raw.
type Device struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
}

// ParseDevice condenses a raw User-Agent header. Empty or unrecognizable
// input yields a zero Device.
func ParseDevice(raw string) Device {
	if raw == "" {
		return Device{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser := name
	if version != "" {
		browser = name + " " + version
	}
	return Device{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
	}
}
