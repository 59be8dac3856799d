package domain

// Role maps a short cohort selector to the Discord role it grants.
type Role struct {
	Key         string
	DiscordID   string // Discord role snowflake attached on redemption
	DisplayName string // human name used in emails, e.g. "Programming Bitcoin"
}

// RoleMap is the statically configured set of grantable roles, keyed by
// selector. It is built once at startup and never mutated.
type RoleMap map[string]Role

// Lookup returns the role for the given selector.
func (m RoleMap) Lookup(key string) (Role, bool) {
	r, ok := m[key]
	return r, ok
}

// Keys returns the configured selectors in no particular order.
func (m RoleMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
