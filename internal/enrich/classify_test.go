package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intelligencebrief/brief/internal/model"
)

func TestClassifyBySource(t *testing.T) {
	tests := []struct {
		source    string
		wantBadge string
		wantScore int
	}{
		{"Google AI Blog", model.BadgeOfficial, 95},
		{"Microsoft", model.BadgeOfficial, 95},
		{"TechCrunch", model.BadgeTrusted, 90},
		{"The Verge", model.BadgeTrusted, 90},
		{"Ars Technica", model.BadgeTrusted, 90},
		{"Random Aggregator", model.BadgeNews, 75},
		{"", model.BadgeNews, 75},
	}

	for _, tt := range tests {
		badge, score, reason := ClassifyBySource(tt.source)
		assert.Equal(t, tt.wantBadge, badge, tt.source)
		assert.Equal(t, tt.wantScore, score, tt.source)
		assert.NotEmpty(t, reason, tt.source)
	}
}

func TestClassifyBySource_CaseInsensitive(t *testing.T) {
	badge, _, _ := ClassifyBySource("TECHCRUNCH")
	assert.Equal(t, model.BadgeTrusted, badge)
}
