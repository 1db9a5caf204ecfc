// Package policy declares which fields are encrypted at rest.
//
// Policies are typed values bound to entity types at construction time, not
// string-keyed lookups resolved per query. The global sensitive key set
// covers free-form JSON payloads whose shape is not known in advance.
package policy

// EntityType names a kind of tenant-scoped entity.
type EntityType string

const (
	EntityMember         EntityType = "member"
	EntityAsset          EntityType = "asset"
	EntityFinanceAccount EntityType = "finance_account"
)

// FieldPolicy lists the flat sensitive fields of one entity type and the
// fields holding free-form JSON that must be walked with the global key set.
type FieldPolicy struct {
	Entity     EntityType
	Fields     []string
	JSONFields []string
}

// HasField reports whether name is a flat sensitive field.
func (p FieldPolicy) HasField(name string) bool {
	for _, f := range p.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// sensitiveJSONKeys are recognized at any nesting depth inside free-form
// payloads, independent of which top-level field holds the payload.
var sensitiveJSONKeys = map[string]struct{}{
	"policy_number":  {},
	"account_number": {},
	"serial_number":  {},
	"license_number": {},
	"ssn":            {},
	"pin":            {},
}

// IsSensitiveKey reports whether a JSON key's value must be encrypted.
func IsSensitiveKey(name string) bool {
	_, ok := sensitiveJSONKeys[name]
	return ok
}

// Registry of field policies, one per entity type. Repositories fetch their
// policy once at construction.
var policies = map[EntityType]FieldPolicy{
	EntityMember: {
		Entity: EntityMember,
		Fields: []string{"email", "date_of_birth"},
	},
	EntityAsset: {
		Entity:     EntityAsset,
		Fields:     []string{"serial_number"},
		JSONFields: []string{"details"},
	},
	EntityFinanceAccount: {
		Entity:     EntityFinanceAccount,
		Fields:     []string{"account_number"},
		JSONFields: []string{"details"},
	},
}

// For returns the field policy for an entity type. Unknown types get an
// empty policy: nothing encrypted, nothing walked.
func For(entity EntityType) FieldPolicy {
	return policies[entity]
}
