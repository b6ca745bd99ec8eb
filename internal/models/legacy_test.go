package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLegacyPopulatesEveryAlias(t *testing.T) {
	app := &Application{
		ID:       42,
		JobTitle: "Backend Engineer",
		Company:  "Acme",
		Location: "Remote",
		URL:      "https://acme.example/job/1",
		Status:   StatusInProgress,
	}
	rec := ToLegacy(app)

	assert.Equal(t, rec["company"], rec["companyName"])
	assert.Equal(t, "Acme", rec["company"])

	assert.Equal(t, rec["title"], rec["jobTitle"])
	assert.Equal(t, rec["title"], rec["position"])
	assert.Equal(t, "Backend Engineer", rec["title"])

	assert.Equal(t, rec["url"], rec["jobUrl"])
}

func TestMatchesCompanyUnderEitherAlias(t *testing.T) {
	rec := ToLegacy(&Application{Company: "Acme"})
	assert.True(t, rec.MatchesCompany("Acme"))
	assert.False(t, rec.MatchesCompany("Globex"))

	// Records from older clients that wrote only one alias.
	assert.True(t, LegacyRecord{"company": "Acme"}.MatchesCompany("Acme"))
	assert.True(t, LegacyRecord{"companyName": "Acme"}.MatchesCompany("Acme"))
}

func TestLegacyID(t *testing.T) {
	cases := []struct {
		name string
		rec  LegacyRecord
		want uint
		ok   bool
	}{
		{"adapter uint", ToLegacy(&Application{ID: 7}), 7, true},
		{"decoded json float", LegacyRecord{"id": float64(9)}, 9, true},
		{"stringified", LegacyRecord{"id": "11"}, 11, true},
		{"garbage string", LegacyRecord{"id": "seven"}, 0, false},
		{"missing", LegacyRecord{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := LegacyID(tc.rec)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStepOrder(t *testing.T) {
	assert.Equal(t, 0, StepOrder(StepPersonalInfo))
	assert.Equal(t, 3, StepOrder(StepReview))
	assert.Equal(t, -1, StepOrder("extra_step"))
	assert.Len(t, StepNames, 4)
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusNotStarted, StatusInProgress, StatusApplied,
		StatusInterviewing, StatusOffer, StatusRejected, StatusAccepted, StatusWithdrawn} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("Ghosted"))
}
