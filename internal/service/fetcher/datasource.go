package fetcher

import "time"

// DefaultKind marks the workspace's built-in data source, never used as a fallback.
const DefaultKind = "default"

// Policy names how a fallback data source is picked among eligible ones.
type Policy string

const (
	// PolicyFirst keeps the listing order of the backend.
	PolicyFirst Policy = "first"
	// PolicyNewest picks the most recently created source.
	PolicyNewest Policy = "newest"
)

// DataSource is one entry of the workspace data-source listing.
type DataSource struct {
	ID        string
	Name      string
	Kind      string
	Active    bool
	CreatedAt time.Time
}

func (d *DataSource) eligible() bool {
	return d.ID != "" && d.Active && d.Kind != DefaultKind
}

// Resolve picks the fallback data source id. It returns an empty id when no
// source is both active and not of the default kind.
func Resolve(sources []DataSource, policy Policy) string {
	var picked *DataSource

	for i := range sources {
		candidate := &sources[i]
		if !candidate.eligible() {
			continue
		}

		if picked == nil {
			picked = candidate

			if policy != PolicyNewest {
				break
			}

			continue
		}

		if candidate.CreatedAt.After(picked.CreatedAt) {
			picked = candidate
		}
	}

	if picked == nil {
		return ""
	}

	return picked.ID
}
