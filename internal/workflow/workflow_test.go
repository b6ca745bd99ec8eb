package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/careertrack/careertrack/internal/client"
	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/models"
	"github.com/careertrack/careertrack/internal/outbox"
	"github.com/careertrack/careertrack/internal/querycache"
	"github.com/careertrack/careertrack/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory server. authFail simulates a demo deployment
// rejecting every call; failStep simulates a plain outage on step calls.
type fakeAPI struct {
	authFail bool
	failStep bool
	nextID   uint
	apps     map[uint]*dtos.ApplicationResponse
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 1, apps: map[uint]*dtos.ApplicationResponse{}}
}

func (f *fakeAPI) CreateApplication(ctx context.Context, req *dtos.ApplicationCreateRequest) (*dtos.ApplicationResponse, error) {
	if f.authFail {
		return nil, client.ErrAuthRequired
	}
	app := &dtos.ApplicationResponse{
		ID:       f.nextID,
		JobTitle: req.JobTitle,
		Company:  req.Company,
		URL:      req.URL,
		Notes:    req.Notes,
		Status:   models.StatusInProgress,
		Version:  1,
	}
	for i, name := range models.StepNames {
		app.Steps = append(app.Steps, models.ApplicationStep{
			ID:            f.nextID*10 + uint(i),
			ApplicationID: f.nextID,
			Name:          name,
		})
	}
	f.apps[app.ID] = app
	f.nextID++
	return app, nil
}

func (f *fakeAPI) GetApplication(ctx context.Context, id uint) (*dtos.ApplicationResponse, error) {
	if f.authFail {
		return nil, client.ErrAuthRequired
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return app, nil
}

func (f *fakeAPI) CompleteStep(ctx context.Context, stepID uint, data json.RawMessage) (*dtos.ApplicationResponse, error) {
	if f.authFail {
		return nil, client.ErrAuthRequired
	}
	if f.failStep {
		return nil, &client.APIError{Status: 500, Message: "db down"}
	}
	for _, app := range f.apps {
		for i := range app.Steps {
			if app.Steps[i].ID == stepID {
				app.Steps[i].Completed = true
				app.Steps[i].Data = string(data)
				app.Version++
				return app, nil
			}
		}
	}
	return nil, errors.New("no such step")
}

func (f *fakeAPI) SubmitApplication(ctx context.Context, id uint, applied bool) (*dtos.ApplicationResponse, error) {
	if f.authFail {
		return nil, client.ErrAuthRequired
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, errors.New("not found")
	}
	if applied {
		app.Status = models.StatusApplied
	} else {
		app.Status = models.StatusInProgress
	}
	app.Version++
	return app, nil
}

func (f *fakeAPI) list() []dtos.ApplicationResponse {
	out := make([]dtos.ApplicationResponse, 0, len(f.apps))
	for _, a := range f.apps {
		out = append(out, *a)
	}
	return out
}

func (f *fakeAPI) step(appID uint, name string) models.ApplicationStep {
	for _, st := range f.apps[appID].Steps {
		if st.Name == name {
			return st
		}
	}
	return models.ApplicationStep{}
}

func newHarness(t *testing.T, api *fakeAPI, job wizard.JobInfo) (*Flow, *outbox.Outbox, *querycache.Cache) {
	t.Helper()
	ob, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.json"))
	require.NoError(t, err)

	cache := querycache.New()
	cache.Register(KeyApplications, func(ctx context.Context) (any, error) {
		return api.list(), nil
	})
	for _, key := range []string{KeyJobApplications, KeyInterviewProcesses, KeyDashboardStats} {
		cache.Register(key, func(ctx context.Context) (any, error) { return nil, nil })
	}

	return New(job, api, ob, cache), ob, cache
}

var detailsForm = wizard.FormData{"job_title": "Backend Engineer", "company": "Acme", "notes": "referral"}

func TestOnlineFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	flow, ob, cache := newHarness(t, api, wizard.JobInfo{})

	var seen []dtos.ApplicationResponse
	_, err := cache.Subscribe(KeyApplications, func(data any) {
		seen = data.([]dtos.ApplicationResponse)
	})
	require.NoError(t, err)

	require.NoError(t, flow.Advance(ctx, detailsForm))
	assert.Equal(t, wizard.StepResume, flow.Step())
	assert.EqualValues(t, 1, flow.ApplicationID())
	assert.True(t, api.step(1, models.StepPersonalInfo).Completed)
	require.Len(t, seen, 1, "subscriber must observe the mutation")

	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
	assert.True(t, api.step(1, models.StepResume).Completed)

	require.NoError(t, flow.Advance(ctx, wizard.FormData{}))
	assert.Equal(t, wizard.StepReview, flow.Step())

	require.NoError(t, flow.Finish(ctx, true, wizard.FormData{}))
	assert.Equal(t, wizard.StepDone, flow.Step())
	assert.Equal(t, models.StatusApplied, api.apps[1].Status)
	assert.True(t, api.step(1, models.StepReview).Completed)
	assert.False(t, flow.Offline())
	assert.Equal(t, 0, ob.Pending())
	assert.Equal(t, models.StatusApplied, seen[0].Status, "subscriber data is fresh after submit")
}

func TestFinishNotAppliedStaysInProgress(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	flow, _, _ := newHarness(t, api, wizard.JobInfo{})

	require.NoError(t, flow.Advance(ctx, detailsForm))
	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
	require.NoError(t, flow.Advance(ctx, wizard.FormData{}))
	require.NoError(t, flow.Finish(ctx, false, wizard.FormData{}))

	assert.Equal(t, models.StatusInProgress, api.apps[1].Status)
}

func TestPrefilledJobCompletesDetailsStepImplicitly(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	job := wizard.JobInfo{
		Title:       "Backend Engineer",
		Company:     "Acme",
		URL:         "https://acme.example/job/1",
		Description: "...",
	}
	flow, _, _ := newHarness(t, api, job)

	assert.Equal(t, wizard.StepResume, flow.Step(), "prefilled wizard skips to resume selection")

	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
	assert.True(t, api.step(1, models.StepPersonalInfo).Completed, "skipped details step still completes server-side")
	assert.True(t, api.step(1, models.StepResume).Completed)
	assert.Equal(t, "Acme", api.apps[1].Company)
}

func TestValidationFailureKeepsStepAndSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	flow, _, _ := newHarness(t, api, wizard.JobInfo{})

	err := flow.Advance(ctx, wizard.FormData{"notes": "missing the rest"})
	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, wizard.StepDetails, flow.Step())
	assert.Empty(t, api.apps, "no mutation may fire on a validation failure")
}

func TestServerErrorSurfacesAndKeepsStep(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	flow, _, _ := newHarness(t, api, wizard.JobInfo{})

	require.NoError(t, flow.Advance(ctx, detailsForm))

	api.failStep = true
	err := flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, wizard.StepResume, flow.Step(), "non-auth failures keep the user on the step")
	assert.False(t, flow.Offline())

	api.failStep = false
	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
}

func TestAuthRequiredFallsBackToOutbox(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.authFail = true
	flow, ob, _ := newHarness(t, api, wizard.JobInfo{})

	require.NoError(t, flow.Advance(ctx, detailsForm))
	assert.True(t, flow.Offline())
	assert.Equal(t, wizard.StepResume, flow.Step(), "auth rejection must not strand the wizard")

	recs := ob.LegacyRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusInProgress, recs[0]["status"])
	assert.Equal(t, recs[0]["company"], recs[0]["companyName"])
	assert.Equal(t, "Acme", recs[0]["company"])
	id, ok := models.LegacyID(recs[0])
	require.True(t, ok, "fallback record carries a numeric id")
	assert.Equal(t, flow.ApplicationID(), id)

	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
	require.NoError(t, flow.Advance(ctx, wizard.FormData{}))
	require.NoError(t, flow.Finish(ctx, true, wizard.FormData{}))
	assert.Equal(t, wizard.StepDone, flow.Step())

	// create + four steps + submit, all queued for replay.
	assert.Equal(t, 6, ob.Pending())
	assert.Equal(t, models.StatusApplied, ob.Records()[0].Status)
	assert.Empty(t, api.apps, "nothing reached the server")

	// Connectivity returns: the queue drains into real records.
	api.authFail = false
	require.NoError(t, ob.Replay(ctx, api))
	assert.Equal(t, 0, ob.Pending())
	require.Len(t, api.apps, 1)
	assert.Equal(t, models.StatusApplied, api.apps[1].Status)
}

func TestMidFlowAuthLossMirrorsProgress(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	flow, ob, _ := newHarness(t, api, wizard.JobInfo{})

	require.NoError(t, flow.Advance(ctx, detailsForm))
	require.Len(t, api.apps, 1)

	api.authFail = true
	require.NoError(t, flow.Advance(ctx, wizard.FormData{"resume_id": "resume-7"}))
	assert.True(t, flow.Offline())
	assert.Equal(t, wizard.StepCoverLetter, flow.Step())

	// Mirrored create + replayed details + the resume step.
	assert.Equal(t, 3, ob.Pending())
	recs := ob.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Backend Engineer", recs[0].JobTitle)
}
