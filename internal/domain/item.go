package domain

// Fields holds the canonical fields of an item: fixed schema fields
// (post_title, post_content, start/end timestamps, meta values) plus any
// admin-defined custom fields. Values are strings, numbers, booleans,
// time.Time instants, or nested records (organizer, venue).
type Fields map[string]interface{}

// CanonicalItem is the normalized representation of one remote record.
// It is rebuilt from vendor data on every pass and never persisted directly;
// only its content hash survives a run.
type CanonicalItem struct {
	// ChmsID is the stable vendor-assigned identifier, unique per content type.
	ChmsID string

	Fields Fields

	// TaxonomyTerms maps a taxonomy name to the term names assigned to the
	// item, e.g. "cp_group_category" -> {"Men", "Outdoors"}.
	TaxonomyTerms map[string][]string

	// ThumbnailURL is an optional remote image to be imported by the sink.
	ThumbnailURL string
}

// NewCanonicalItem returns an item with initialized field and taxonomy maps.
func NewCanonicalItem(chmsID string) *CanonicalItem {
	return &CanonicalItem{
		ChmsID:        chmsID,
		Fields:        Fields{},
		TaxonomyTerms: map[string][]string{},
	}
}

// AddTerm appends a taxonomy term, skipping duplicates.
func (c *CanonicalItem) AddTerm(taxonomy, term string) {
	if term == "" {
		return
	}
	for _, existing := range c.TaxonomyTerms[taxonomy] {
		if existing == term {
			return
		}
	}
	c.TaxonomyTerms[taxonomy] = append(c.TaxonomyTerms[taxonomy], term)
}
