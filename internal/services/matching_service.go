package services

import (
	"net/mail"
	"strings"

	"github.com/careertrack/careertrack/internal/models"
	"gorm.io/gorm"
)

type MatcherService struct {
	DB *gorm.DB
}

func NewMatcherService(db *gorm.DB) *MatcherService {
	return &MatcherService{DB: db}
}

// FindApplicationsFromEmail matches an email to tracked applications by
// company name, checking the subject line, the sender display name, and
// the sender domain. Terminal-state applications are skipped.
func (s *MatcherService) FindApplicationsFromEmail(subject, rawSender string) []models.Application {
	parsedAddr, err := mail.ParseAddress(rawSender)
	senderName := ""
	senderAddr := ""
	if err == nil {
		senderName = strings.ToLower(parsedAddr.Name)
		senderAddr = strings.ToLower(parsedAddr.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}

	subjectLower := strings.ToLower(subject)

	var apps []models.Application
	s.DB.Where("status NOT IN ?", []string{
		models.StatusRejected, models.StatusAccepted, models.StatusWithdrawn,
	}).Find(&apps)

	var matched []models.Application
	for _, app := range apps {
		company := strings.ToLower(app.Company)
		// Very short names match everything ("X", "Go"), skip them.
		if len(company) < 3 {
			continue
		}
		if matchesCompany(subjectLower, senderName, senderAddr, company) {
			matched = append(matched, app)
		}
	}
	return matched
}

func matchesCompany(subject, senderName, senderAddr, company string) bool {
	// Subject line: "Update on your application to Stripe".
	if strings.Contains(subject, company) {
		return true
	}
	// Sender display name: "Stripe Recruiting".
	if senderName != "" && strings.Contains(senderName, company) {
		return true
	}
	// Sender domain only, the local part is too noisy.
	parts := strings.Split(senderAddr, "@")
	if len(parts) == 2 && strings.Contains(parts[1], company) {
		return true
	}
	return false
}
