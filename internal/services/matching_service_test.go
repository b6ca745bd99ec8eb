package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesCompany(t *testing.T) {
	cases := []struct {
		name       string
		subject    string
		senderName string
		senderAddr string
		company    string
		want       bool
	}{
		{"subject line", "update on your application to stripe", "", "no-reply@hire.example", "stripe", true},
		{"sender display name", "interview availability", "stripe recruiting", "jobs@ats.example", "stripe", true},
		{"sender domain", "next steps", "", "jobs@stripe.com", "stripe", true},
		{"local part alone is not enough", "next steps", "", "stripe@gmail.com", "stripe", false},
		{"no signal", "newsletter", "weekly digest", "news@letters.example", "stripe", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matchesCompany(tc.subject, tc.senderName, tc.senderAddr, tc.company)
			assert.Equal(t, tc.want, got)
		})
	}
}
