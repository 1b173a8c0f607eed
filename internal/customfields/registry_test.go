package customfields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Group Focus", "group-focus"},
		{"Life Stage", "life-stage"},
		{"  Kid Friendly?  ", "kid-friendly"},
		{"State/Region", "state-region"},
		{"Men's Ministry", "mens-ministry"},
		{"UPPER case", "upper-case"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestNewRegistry_SlugCollisionSuffixing(t *testing.T) {
	r := NewRegistry(domain.ContentTypeGroups, []Mapping{
		{DisplayName: "Group Focus", Source: "Group_Focus"},
		{DisplayName: "Group Focus", Source: "Secondary_Focus"},
		{DisplayName: "Group Focus", Source: "Tertiary_Focus"},
	})

	fields := r.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "cp_connect_group-focus", fields[0].Slug)
	assert.Equal(t, "cp_connect_group-focus-1", fields[1].Slug)
	assert.Equal(t, "cp_connect_group-focus-2", fields[2].Slug)
}

func TestNewRegistry_CollisionIndependentOfRecordOrder(t *testing.T) {
	mappings := []Mapping{
		{DisplayName: "Group Focus", Source: "Group_Focus"},
		{DisplayName: "Group Focus", Source: "Secondary_Focus"},
	}

	// Slugs come from the mapping table, so raw-record key order is
	// irrelevant; building twice must agree.
	a := NewRegistry(domain.ContentTypeGroups, mappings)
	b := NewRegistry(domain.ContentTypeGroups, mappings)
	assert.Equal(t, a.Fields(), b.Fields())
}

func TestObserve_ReturnsAssignmentsAndAccumulatesOptions(t *testing.T) {
	r := NewRegistry(domain.ContentTypeGroups, []Mapping{
		{DisplayName: "Life Stage", Source: "Life_Stage"},
	})

	got := r.Observe(domain.RawRecord{"Life_Stage": "Young  Adults"})
	assert.Equal(t, map[string]string{"cp_connect_life-stage": "Young Adults"}, got)

	r.Observe(domain.RawRecord{"Life_Stage": "Families"})
	r.Observe(domain.RawRecord{"Life_Stage": "Young Adults"}) // dupe
	r.Observe(domain.RawRecord{})                             // absent field

	assert.Equal(t, map[string][]string{
		"cp_connect_life-stage": {"Young Adults", "Families"},
	}, r.Options())
}

func TestObserve_SkipsEmptyValues(t *testing.T) {
	r := NewRegistry(domain.ContentTypeGroups, []Mapping{
		{DisplayName: "Focus", Source: "Group_Focus"},
	})

	got := r.Observe(domain.RawRecord{"Group_Focus": "   "})
	assert.Empty(t, got)
	assert.Empty(t, r.Options())
}

func TestObserve_NestedSource(t *testing.T) {
	r := NewRegistry(domain.ContentTypeGroups, []Mapping{
		{DisplayName: "Campus", Source: "location.campus"},
	})

	got := r.Observe(domain.RawRecord{
		"location": map[string]interface{}{"campus": "Downtown"},
	})
	assert.Equal(t, map[string]string{"cp_connect_campus": "Downtown"}, got)
}
