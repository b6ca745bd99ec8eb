// Package workflow ties the wizard state machine, the API client, the
// offline outbox, and the query cache into the application submission
// flow: validate, mutate, then either invalidate-and-advance or surface
// the failure and stay on the current step.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/careertrack/careertrack/internal/client"
	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/logger"
	"github.com/careertrack/careertrack/internal/outbox"
	"github.com/careertrack/careertrack/internal/wizard"
)

// Query keys invalidated after every mutation in this flow.
const (
	KeyApplications       = "applications"
	KeyJobApplications    = "job-applications"
	KeyInterviewProcesses = "interview-processes"
	KeyDashboardStats     = "dashboard-stats"
)

var mutationKeys = []string{KeyApplications, KeyJobApplications, KeyInterviewProcesses, KeyDashboardStats}

// API is the mutation surface the flow needs; *client.Client satisfies it.
type API interface {
	outbox.API
}

// Invalidator is the cache side of the flow. Invalidation failures are
// reported to the caller but never block the wizard.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
	WaitFor(ctx context.Context, key string, pred func(data any) bool) error
}

// Flow drives one application through the wizard.
type Flow struct {
	wiz    *wizard.Wizard
	api    API
	outbox *outbox.Outbox
	cache  Invalidator

	appID   uint
	stepIDs map[string]uint
	version uint64
	offline bool
}

func New(job wizard.JobInfo, api API, ob *outbox.Outbox, cache Invalidator) *Flow {
	return &Flow{
		wiz:     wizard.New(job),
		api:     api,
		outbox:  ob,
		cache:   cache,
		stepIDs: map[string]uint{},
	}
}

// Step returns the wizard's current stage.
func (f *Flow) Step() wizard.Step { return f.wiz.Step() }

// Offline reports whether the flow fell back to the outbox.
func (f *Flow) Offline() bool { return f.offline }

// ApplicationID returns the tracked application's identifier: the server
// ID when online, the synthesized local ID when offline, 0 before the
// first mutation.
func (f *Flow) ApplicationID() uint { return f.appID }

// Retreat moves back one stage; entered data is kept.
func (f *Flow) Retreat() { f.wiz.Retreat() }

// Advance validates the current step, performs its mutation, and moves
// forward. A validation or non-auth server error leaves the step
// unchanged; an auth rejection switches the flow to the outbox and still
// advances.
func (f *Flow) Advance(ctx context.Context, data wizard.FormData) error {
	step := f.wiz.Step()
	if step == wizard.StepReview || step == wizard.StepDone {
		return fmt.Errorf("advance: wizard is at %s; use Finish", step)
	}
	if verr := f.wiz.Validate(data); verr != nil {
		return verr
	}
	if err := f.mutateFor(ctx, step, data); err != nil {
		return err
	}

	if err := f.wiz.Advance(data); err != nil {
		return err
	}
	return f.invalidate(ctx)
}

// Finish completes the review stage and submits the application. The
// applied flag decides whether it lands as Applied or In Progress.
func (f *Flow) Finish(ctx context.Context, applied bool, data wizard.FormData) error {
	if f.wiz.Step() != wizard.StepReview {
		return fmt.Errorf("finish: wizard is at %s, not review", f.wiz.Step())
	}
	if err := f.completeStep(ctx, wizard.StepReview.WireName(), data); err != nil {
		return err
	}
	if err := f.submit(ctx, applied); err != nil {
		return err
	}
	if err := f.wiz.Finish(); err != nil {
		return err
	}
	return f.invalidate(ctx)
}

// mutateFor runs the network side of leaving a step.
func (f *Flow) mutateFor(ctx context.Context, step wizard.Step, data wizard.FormData) error {
	created := f.appID == 0
	if err := f.ensureCreated(ctx, data); err != nil {
		return err
	}
	// A prefilled wizard opens at resume and never shows the details
	// step, but the step record still has to complete for submit.
	if created && step != wizard.StepDetails {
		if err := f.completeStep(ctx, wizard.StepDetails.WireName(), f.wiz.Job().Details()); err != nil {
			return err
		}
	}
	return f.completeStep(ctx, step.WireName(), data)
}

// ensureCreated performs the create mutation exactly once per flow. An
// auth rejection synthesizes the record in the outbox instead.
func (f *Flow) ensureCreated(ctx context.Context, data wizard.FormData) error {
	if f.appID != 0 {
		return nil
	}

	job := f.wiz.Job()
	form := f.wiz.Form()
	req := &dtos.ApplicationCreateRequest{
		JobTitle:    firstNonEmpty(data["job_title"], form["job_title"], job.Title),
		Company:     firstNonEmpty(data["company"], form["company"], job.Company),
		Location:    firstNonEmpty(data["location"], form["location"], job.Location),
		Description: job.Description,
		URL:         job.URL,
		Source:      job.Source,
		Notes:       firstNonEmpty(data["notes"], form["notes"]),
	}

	resp, err := f.api.CreateApplication(ctx, req)
	if err == nil {
		f.appID = resp.ID
		f.version = resp.Version
		for _, st := range resp.Steps {
			f.stepIDs[st.Name] = st.ID
		}
		return nil
	}
	if !errors.Is(err, client.ErrAuthRequired) {
		return err
	}

	return f.goOffline(req)
}

func (f *Flow) goOffline(req *dtos.ApplicationCreateRequest) error {
	local, err := f.outbox.EnqueueCreate(req)
	if err != nil {
		return err
	}
	f.offline = true
	f.appID = local.ID
	f.version = local.Version
	for _, st := range local.Steps {
		f.stepIDs[st.Name] = st.ID
	}
	return nil
}

func (f *Flow) completeStep(ctx context.Context, name string, data wizard.FormData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if f.offline {
		return f.outbox.EnqueueStep(f.appID, name, payload)
	}

	stepID, ok := f.stepIDs[name]
	if !ok {
		return fmt.Errorf("no step %q on application %d", name, f.appID)
	}
	resp, err := f.api.CompleteStep(ctx, stepID, payload)
	if err == nil {
		f.version = resp.Version
		return nil
	}
	if !errors.Is(err, client.ErrAuthRequired) {
		return err
	}

	// Auth was lost after the server-side create. Mirror the record into
	// the outbox and queue from here; the replayed create may duplicate
	// the server row, which beats losing the user's progress.
	if err := f.mirrorToOutbox(); err != nil {
		return err
	}
	return f.outbox.EnqueueStep(f.appID, name, payload)
}

func (f *Flow) submit(ctx context.Context, applied bool) error {
	if f.offline {
		return f.outbox.EnqueueSubmit(f.appID, applied)
	}
	resp, err := f.api.SubmitApplication(ctx, f.appID, applied)
	if err == nil {
		f.version = resp.Version
		return nil
	}
	if !errors.Is(err, client.ErrAuthRequired) {
		return err
	}
	if err := f.mirrorToOutbox(); err != nil {
		return err
	}
	return f.outbox.EnqueueSubmit(f.appID, applied)
}

// mirrorToOutbox rebuilds the flow's application as a local outbox record
// after a mid-flow auth loss, replaying already-completed steps into it.
func (f *Flow) mirrorToOutbox() error {
	job := f.wiz.Job()
	form := f.wiz.Form()
	req := &dtos.ApplicationCreateRequest{
		JobTitle:    firstNonEmpty(form["job_title"], job.Title),
		Company:     firstNonEmpty(form["company"], job.Company),
		Location:    firstNonEmpty(form["location"], job.Location),
		Description: job.Description,
		URL:         job.URL,
		Source:      job.Source,
		Notes:       form["notes"],
	}
	if err := f.goOffline(req); err != nil {
		return err
	}

	payload, err := json.Marshal(form)
	if err != nil {
		return err
	}
	cur := f.wiz.Step()
	for s := wizard.StepDetails; s < cur; s++ {
		if err := f.outbox.EnqueueStep(f.appID, s.WireName(), payload); err != nil {
			return err
		}
	}
	return nil
}

// invalidate refreshes the dependent query keys. Online flows also wait
// until the list view reflects the version this flow just wrote, so the
// caller never reads its own write as stale.
func (f *Flow) invalidate(ctx context.Context) error {
	if f.cache == nil {
		return nil
	}
	if err := f.cache.Invalidate(ctx, mutationKeys...); err != nil {
		// A failed refetch only means a view stays stale until its next
		// read; it must not undo an already-advanced wizard.
		l := logger.Get()
		l.Warn().Err(err).Msg("Query refresh failed after mutation")
	}
	if f.offline || f.appID == 0 {
		return nil
	}
	appID, version := f.appID, f.version
	return f.cache.WaitFor(ctx, KeyApplications, func(data any) bool {
		apps, ok := data.([]dtos.ApplicationResponse)
		if !ok {
			return true
		}
		for _, a := range apps {
			if a.ID == appID {
				return a.Version >= version
			}
		}
		return false
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
