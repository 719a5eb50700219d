package registry

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// ProjectTokenDictionary maps a registry project ID to its API credential.
type ProjectTokenDictionary map[string]string

// ParseProjectTokens builds the dictionary from "project:token" entries.
// Entries without both a project and a token are dropped.
func ParseProjectTokens(entries []string) ProjectTokenDictionary {
	dict := make(ProjectTokenDictionary, len(entries))
	for idx, entry := range entries {
		key, value, found := strings.Cut(strings.TrimSpace(entry), ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !found || key == "" || value == "" {
			log.Warnf("Ignoring malformed project token entry at position %d", idx)
			continue
		}
		dict[key] = value
	}
	return dict
}

// Token returns the credential of a project.
func (d ProjectTokenDictionary) Token(projectID string) (string, bool) {
	token, ok := d[projectID]
	return token, ok
}
