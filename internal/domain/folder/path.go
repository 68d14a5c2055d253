// Package folder derives the remote folder path of a contract.
package folder

import (
	"path"
	"strconv"
	"strings"

	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/pkg/utils"
)

// DirectAgent names the folder used when a contract has no sales channel
const DirectAgent = "Direct"

var classificationFolders = map[string]string{
	entity.ClassificationIndividual:  "Individual",
	entity.ClassificationTemplate:    "Template",
	entity.ClassificationSupervision: "Supervision",
}

var statusFolders = map[string]string{
	entity.StatusNew:              "Active",
	entity.StatusInProgress:       "Active",
	entity.StatusDelivered:        "Archive",
	entity.StatusTerminated:       "Terminated",
	entity.StatusUnderSupervision: "Supervision",
}

// PathFor returns "<agent>/<classification>/<city>/<status>/<address> <area> m2".
// ok is false when classification, city or address is missing.
func PathFor(c *entity.Contract) (string, bool) {
	class, known := classificationFolders[c.Classification]
	if !known {
		return "", false
	}
	city := SanitizeSegment(c.City)
	address := SanitizeSegment(c.Address)
	if city == "" || address == "" {
		return "", false
	}

	agent := SanitizeSegment(c.AgentType)
	if agent == "" {
		agent = DirectAgent
	}
	status, known := statusFolders[c.Status]
	if !known {
		status = statusFolders[entity.StatusNew]
	}

	leaf := address + " " + strconv.FormatFloat(c.Area, 'f', -1, 64) + " m2"
	return path.Join(agent, class, city, status, leaf), true
}

// SanitizeSegment strips separators, traversal and control characters from
// a single path segment.
func SanitizeSegment(s string) string {
	s = utils.SanitizeString(s)
	s = strings.NewReplacer("/", " ", "\\", " ", ":", " ").Replace(s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, ". ")
}
