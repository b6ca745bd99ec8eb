// Command wizard drives the application submission workflow from the
// terminal: it walks the four stages against a running API server and
// falls back to the local outbox when the server rejects the session.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/careertrack/careertrack/internal/client"
	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/logger"
	"github.com/careertrack/careertrack/internal/models"
	"github.com/careertrack/careertrack/internal/outbox"
	"github.com/careertrack/careertrack/internal/querycache"
	"github.com/careertrack/careertrack/internal/wizard"
	"github.com/careertrack/careertrack/internal/workflow"
	"github.com/joho/godotenv"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "API server base URL")
	email := flag.String("email", "", "Identity email sent with each request")
	title := flag.String("title", "", "Job title of the posting")
	company := flag.String("company", "", "Company of the posting")
	location := flag.String("location", "", "Location of the posting")
	jobURL := flag.String("url", "", "Posting URL")
	description := flag.String("description", "", "Posting description")
	source := flag.String("source", "manual", "Where the posting came from")
	dataDir := flag.String("data-dir", "", "Directory for the offline outbox")
	flag.Parse()

	logger.Init()
	log := logger.Get()
	_ = godotenv.Load()

	if *dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get home directory")
		}
		*dataDir = filepath.Join(home, ".careertrack")
	}

	ob, err := outbox.Open(filepath.Join(*dataDir, "outbox.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open outbox")
	}

	cli := client.New(*server, *email)
	ctx := context.Background()

	// Drain anything queued from earlier offline sessions first.
	if ob.Pending() > 0 {
		log.Info().Int("pending", ob.Pending()).Msg("Replaying queued mutations")
		if err := ob.Replay(ctx, cli); err != nil {
			log.Warn().Err(err).Int("remaining", ob.Pending()).Msg("Replay stopped; entries stay queued")
		}
	}

	cache := querycache.New()
	cache.Register(workflow.KeyApplications, func(ctx context.Context) (any, error) {
		return cli.ListApplications(ctx)
	})
	cache.Register(workflow.KeyJobApplications, func(ctx context.Context) (any, error) {
		// The merged list older views read: server records plus pending
		// local ones, all through the alias adapter.
		apps, err := cli.ListApplications(ctx)
		if err != nil && !errors.Is(err, client.ErrAuthRequired) {
			return nil, err
		}
		merged := ob.LegacyRecords()
		for i := range apps {
			merged = append(merged, legacyFromResponse(&apps[i]))
		}
		return merged, nil
	})
	cache.Register(workflow.KeyInterviewProcesses, func(ctx context.Context) (any, error) {
		return cli.InterviewProcesses(ctx)
	})
	cache.Register(workflow.KeyDashboardStats, func(ctx context.Context) (any, error) {
		return cli.DashboardStats(ctx)
	})

	job := wizard.JobInfo{
		Title:       *title,
		Company:     *company,
		Location:    *location,
		Description: *description,
		URL:         *jobURL,
		Source:      *source,
	}

	flow := workflow.New(job, cli, ob, cache)
	in := bufio.NewScanner(os.Stdin)

	for flow.Step() != wizard.StepDone {
		step := flow.Step()
		fmt.Printf("\n== %s ==\n", step)

		if step == wizard.StepReview {
			fmt.Print("Already applied to this job? [y/N]: ")
			applied := in.Scan() && strings.EqualFold(strings.TrimSpace(in.Text()), "y")
			if err := flow.Finish(ctx, applied, wizard.FormData{}); err != nil {
				log.Error().Err(err).Msg("Submit failed")
				continue
			}
			break
		}

		data := promptStep(in, step, job)
		if data == nil {
			fmt.Println("bye")
			return
		}
		if _, back := data["__back"]; back {
			flow.Retreat()
			continue
		}

		if err := flow.Advance(ctx, data); err != nil {
			var verr *wizard.ValidationError
			if errors.As(err, &verr) {
				for _, f := range verr.Fields {
					fmt.Printf("  %s: %s\n", f.Field, f.Message)
				}
				continue
			}
			log.Error().Err(err).Msg("Mutation failed; fix and retry")
			continue
		}
	}

	mode := "online"
	if flow.Offline() {
		mode = fmt.Sprintf("offline (%d queued)", ob.Pending())
	}
	fmt.Printf("\nApplication %d tracked (%s).\n", flow.ApplicationID(), mode)
}

// promptStep collects the fields for one stage. Returns nil on EOF/quit,
// or a map with "__back" set when the user wants the previous stage.
func promptStep(in *bufio.Scanner, step wizard.Step, job wizard.JobInfo) wizard.FormData {
	fields := map[wizard.Step][]struct{ key, label, preset string }{
		wizard.StepDetails: {
			{"job_title", "Job title", job.Title},
			{"company", "Company", job.Company},
			{"notes", "Notes (optional)", ""},
		},
		wizard.StepResume: {
			{"resume_id", "Resume to attach", ""},
		},
		wizard.StepCoverLetter: {
			{"cover_letter", "Cover letter text (optional)", ""},
		},
	}

	data := wizard.FormData{}
	for _, f := range fields[step] {
		if f.preset != "" {
			fmt.Printf("%s [%s]: ", f.label, f.preset)
		} else {
			fmt.Printf("%s: ", f.label)
		}
		if !in.Scan() {
			return nil
		}
		v := strings.TrimSpace(in.Text())
		switch v {
		case "quit":
			return nil
		case "back":
			return wizard.FormData{"__back": "1"}
		case "":
			v = f.preset
		}
		data[f.key] = v
	}
	return data
}

func legacyFromResponse(a *dtos.ApplicationResponse) models.LegacyRecord {
	return models.LegacyRecord{
		"id":          a.ID,
		"status":      a.Status,
		"company":     a.Company,
		"companyName": a.Company,
		"title":       a.JobTitle,
		"jobTitle":    a.JobTitle,
		"position":    a.JobTitle,
		"location":    a.Location,
		"url":         a.URL,
		"jobUrl":      a.URL,
	}
}
