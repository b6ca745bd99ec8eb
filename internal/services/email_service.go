package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/careertrack/careertrack/internal/logger"
	"github.com/careertrack/careertrack/internal/models"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

// EmailService polls the user's inbox for recruiter emails and advances
// the matching application's status. It keeps its position with Gmail's
// history ID so each cycle only looks at what changed.
type EmailService struct {
	DB          *gorm.DB
	LLMService  *LLMService
	Matcher     *MatcherService
	AppService  *ApplicationService
	GmailClient *gmail.Service
}

func NewEmailService(db *gorm.DB, llm *LLMService, gmailSvc *gmail.Service, matcher *MatcherService, apps *ApplicationService) *EmailService {
	return &EmailService{
		DB:          db,
		LLMService:  llm,
		GmailClient: gmailSvc,
		Matcher:     matcher,
		AppService:  apps,
	}
}

// StartWatcher starts the background polling loop.
func (s *EmailService) StartWatcher() {
	log := logger.Get()
	if s.GmailClient == nil {
		log.Warn().Msg("Email watcher disabled (no Gmail client); check credentials")
		return
	}

	ticker := time.NewTicker(1 * time.Minute)

	go s.SyncEmails()

	go func() {
		for range ticker.C {
			s.SyncEmails()
		}
	}()
}

// SyncEmails runs one sync cycle: pick a strategy, fetch candidates,
// process each unseen message, advance the bookmark.
func (s *EmailService) SyncEmails() {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Info().Msg("Email watcher: starting sync cycle")

	var user models.User
	if err := s.DB.First(&user).Error; err != nil {
		user = models.User{Email: "default", LastHistoryID: 0}
		s.DB.Create(&user)
	}

	var messages []*gmail.Message
	var newHistoryID uint64
	var err error

	if user.LastHistoryID == 0 {
		log.Info().Msg("First run, running full bootstrap sync")
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, user.LastHistoryID)

		// Gmail drops old history (404); fall back to a full scan.
		if err != nil && isHistoryExpiredError(err) {
			log.Warn().Msg("History ID expired, falling back to full sync")
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Sync failed")
		return
	}

	if len(messages) == 0 {
		log.Info().Msg("No new relevant emails")
		if newHistoryID > user.LastHistoryID {
			s.updateUserHistoryID(user.ID, newHistoryID)
		}
		return
	}

	log.Info().Int("count", len(messages)).Msg("Processing candidate emails")

	for _, msg := range messages {
		var count int64
		s.DB.Model(&models.ProcessedEmail{}).Where("id = ?", msg.Id).Count(&count)
		if count > 0 {
			continue
		}

		s.processSingleEmail(ctx, msg)

		s.DB.Create(&models.ProcessedEmail{ID: msg.Id})
	}

	if newHistoryID > user.LastHistoryID {
		s.updateUserHistoryID(user.ID, newHistoryID)
		log.Info().Uint64("history_id", newHistoryID).Msg("History bookmark updated")
	}
}

// performFullSync scans the last 7 days and resets the history anchor.
func (s *EmailService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse

	q := "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"

	err := retry(3, 1*time.Second, func() error {
		var e error
		call := s.GmailClient.Users.Messages.List("me").Q(q).MaxResults(50)
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	profile, err := s.GmailClient.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}

	return s.expandMessages(ctx, resp.Messages), profile.HistoryId, nil
}

// performIncrementalSync asks Gmail only for what changed since startID.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse

	err := retry(3, 1*time.Second, func() error {
		var e error
		call := s.GmailClient.Users.History.List("me").StartHistoryId(startID)
		call.HistoryTypes("messageAdded")
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var msgHeaders []*gmail.Message
	for _, h := range resp.History {
		for _, mAdded := range h.MessagesAdded {
			if mAdded.Message != nil {
				msgHeaders = append(msgHeaders, mAdded.Message)
			}
		}
	}

	return s.expandMessages(ctx, msgHeaders), resp.HistoryId, nil
}

// expandMessages fetches full bodies and headers for a list of IDs.
func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var fullMessages []*gmail.Message
	for _, h := range headers {
		retry(2, 500*time.Millisecond, func() error {
			msg, err := s.GmailClient.Users.Messages.Get("me", h.Id).Context(ctx).Do()
			if err == nil {
				fullMessages = append(fullMessages, msg)
			}
			return err
		})
	}
	return fullMessages
}

// processSingleEmail matches the email to tracked applications, asks the
// model what status it implies, and updates the record.
func (s *EmailService) processSingleEmail(ctx context.Context, msg *gmail.Message) {
	log := logger.Get()
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]

	log = log.With().Str("subject", truncate(subject, 40)).Logger()
	log.Info().Str("from", sender).Msg("Processing email")

	body := getEmailBody(msg)

	apps := s.Matcher.FindApplicationsFromEmail(subject, sender)
	if len(apps) == 0 {
		log.Info().Msg("Skipped: no tracked application matches sender/subject")
		return
	}

	// With several active applications at the same company we cannot tell
	// which one the email refers to; only the unambiguous case updates.
	if len(apps) > 1 {
		log.Warn().Int("matches", len(apps)).Msg("Skipped: ambiguous company match")
		return
	}
	target := apps[0]
	log.Info().Str("company", target.Company).Str("title", target.JobTitle).Msg("Matched application")

	raw, err := s.LLMService.ClassifyStatusEmail(ctx, subject, body)
	if err != nil {
		log.Error().Err(err).Msg("Skipped: classification error")
		return
	}
	status := strings.TrimSpace(raw)

	if status == "NONE" || !models.ValidStatus(status) {
		log.Info().Str("verdict", status).Msg("No status change implied")
		return
	}
	if status == target.Status {
		log.Info().Str("status", status).Msg("Status already current")
		return
	}

	log.Info().Str("from_status", target.Status).Str("to_status", status).Msg("Updating application")
	note := fmt.Sprintf("Status changed by email watcher. Subject: %s", subject)
	if err := s.AppService.SetStatus(target.ID, status, note); err != nil {
		log.Error().Err(err).Msg("Status update failed")
	}
}

// retry executes f with exponential backoff. History-expired errors fail
// fast so the caller can switch to a full sync.
func retry(attempts int, sleep time.Duration, f func() error) error {
	log := logger.Get()
	for i := 0; i < attempts; i++ {
		err := f()
		if err == nil {
			return nil
		}
		if isHistoryExpiredError(err) {
			return err
		}

		log.Warn().Err(err).Dur("backoff", sleep).Msg("Gmail API error, retrying")
		time.Sleep(sleep)
		sleep *= 2
	}
	return fmt.Errorf("failed after %d attempts", attempts)
}

func isHistoryExpiredError(err error) bool {
	if gErr, ok := err.(*googleapi.Error); ok {
		return gErr.Code == 404
	}
	return false
}

func (s *EmailService) updateUserHistoryID(userID uint, newID uint64) {
	s.DB.Model(&models.User{}).Where("id = ?", userID).Update("last_history_id", newID)
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

func getEmailBody(msg *gmail.Message) string {
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		d, _ := base64.URLEncoding.DecodeString(msg.Payload.Body.Data)
		return string(d)
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/html" && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
