// Package outbox is the offline fallback store. When the server rejects a
// mutation with an authentication error the workflow queues it here and
// synthesizes a local application record so the wizard can keep moving.
// Unlike a silent fake-success store, the queue is explicit: entries stay
// pending until Replay drains them against a reachable server.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/models"
	"github.com/google/uuid"
)

// Local record IDs live far above anything postgres will assign, so a
// merged list view can never collide a pending record with a server one.
const localIDBase = 1 << 30

type Kind string

const (
	KindCreate       Kind = "create"
	KindCompleteStep Kind = "complete_step"
	KindSubmit       Kind = "submit"
)

// Entry is one queued mutation.
type Entry struct {
	ID         string                        `json:"id"`
	Kind       Kind                          `json:"kind"`
	LocalAppID uint                          `json:"local_app_id"`
	Create     *dtos.ApplicationCreateRequest `json:"create,omitempty"`
	StepName   string                        `json:"step_name,omitempty"`
	StepData   json.RawMessage               `json:"step_data,omitempty"`
	Applied    bool                          `json:"applied,omitempty"`
	QueuedAt   time.Time                     `json:"queued_at"`
}

type state struct {
	Entries []Entry              `json:"entries"`
	Local   []models.Application `json:"local"`
	// ServerIDs maps a local application ID to the server ID its create
	// landed as, so a drain interrupted mid-queue can resume later.
	ServerIDs map[uint]uint `json:"server_ids,omitempty"`
}

// Outbox persists pending mutations and their synthesized records as JSON
// under a fixed path.
type Outbox struct {
	path string

	mu sync.Mutex
	st state
}

// Open loads (or initializes) the outbox file.
func Open(path string) (*Outbox, error) {
	ob := &Outbox{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ob, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &ob.st); err != nil {
		return nil, fmt.Errorf("outbox: corrupt state file %s: %w", path, err)
	}
	return ob, nil
}

// EnqueueCreate queues a create mutation and synthesizes the local record
// the UI shows meanwhile: random numeric ID, In Progress, all four steps.
func (o *Outbox) EnqueueCreate(req *dtos.ApplicationCreateRequest) (*models.Application, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	app := models.Application{
		ID:          localIDBase + uint(rand.Int31()),
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
		URL:         req.URL,
		Source:      req.Source,
		Notes:       req.Notes,
		Status:      models.StatusInProgress,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, name := range models.StepNames {
		app.Steps = append(app.Steps, models.ApplicationStep{
			ID:            app.ID + uint(i) + 1,
			ApplicationID: app.ID,
			Name:          name,
		})
	}

	o.st.Local = append(o.st.Local, app)
	o.st.Entries = append(o.st.Entries, Entry{
		ID:         uuid.NewString(),
		Kind:       KindCreate,
		LocalAppID: app.ID,
		Create:     req,
		QueuedAt:   now,
	})
	if err := o.save(); err != nil {
		return nil, err
	}
	return &app, nil
}

// EnqueueStep queues a step completion for a local record and marks the
// step complete in the synthesized copy.
func (o *Outbox) EnqueueStep(localAppID uint, stepName string, data json.RawMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	app := o.find(localAppID)
	if app == nil {
		return fmt.Errorf("outbox: no local application %d", localAppID)
	}
	now := time.Now()
	for i := range app.Steps {
		if app.Steps[i].Name == stepName {
			app.Steps[i].Completed = true
			app.Steps[i].Data = string(data)
			app.Steps[i].CompletedAt = &now
		}
	}
	app.Version++
	app.UpdatedAt = now

	o.st.Entries = append(o.st.Entries, Entry{
		ID:         uuid.NewString(),
		Kind:       KindCompleteStep,
		LocalAppID: localAppID,
		StepName:   stepName,
		StepData:   data,
		QueuedAt:   now,
	})
	return o.save()
}

// EnqueueSubmit queues the finalize mutation, moving the local record to
// Applied or keeping it In Progress per the applied flag.
func (o *Outbox) EnqueueSubmit(localAppID uint, applied bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	app := o.find(localAppID)
	if app == nil {
		return fmt.Errorf("outbox: no local application %d", localAppID)
	}
	now := time.Now()
	if applied {
		app.Status = models.StatusApplied
		app.AppliedAt = &now
	} else {
		app.Status = models.StatusInProgress
	}
	app.Version++
	app.UpdatedAt = now

	o.st.Entries = append(o.st.Entries, Entry{
		ID:         uuid.NewString(),
		Kind:       KindSubmit,
		LocalAppID: localAppID,
		Applied:    applied,
		QueuedAt:   now,
	})
	return o.save()
}

// Pending returns the number of queued mutations.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.st.Entries)
}

// Records returns the synthesized local applications, for merging into
// list views next to server records.
func (o *Outbox) Records() []models.Application {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Application, len(o.st.Local))
	copy(out, o.st.Local)
	return out
}

// LegacyRecords renders the local applications through the alias adapter
// so variant-keyed consumers find them.
func (o *Outbox) LegacyRecords() []models.LegacyRecord {
	apps := o.Records()
	out := make([]models.LegacyRecord, 0, len(apps))
	for i := range apps {
		out = append(out, models.ToLegacy(&apps[i]))
	}
	return out
}

// API is the server surface Replay needs. *client.Client satisfies it.
type API interface {
	CreateApplication(ctx context.Context, req *dtos.ApplicationCreateRequest) (*dtos.ApplicationResponse, error)
	GetApplication(ctx context.Context, id uint) (*dtos.ApplicationResponse, error)
	CompleteStep(ctx context.Context, stepID uint, data json.RawMessage) (*dtos.ApplicationResponse, error)
	SubmitApplication(ctx context.Context, id uint, applied bool) (*dtos.ApplicationResponse, error)
}

// Replay drains the queue in order against the server. Local IDs are
// remapped to server-assigned ones as creates land. The first error stops
// the drain; already-replayed entries are removed, the rest stay queued
// for the next attempt.
func (o *Outbox) Replay(ctx context.Context, api API) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// local app ID -> replayed server application (steps included).
	replayed := map[uint]*dtos.ApplicationResponse{}

	for len(o.st.Entries) > 0 {
		e := o.st.Entries[0]
		var err error
		switch e.Kind {
		case KindCreate:
			var resp *dtos.ApplicationResponse
			resp, err = api.CreateApplication(ctx, e.Create)
			if err == nil {
				replayed[e.LocalAppID] = resp
				if o.st.ServerIDs == nil {
					o.st.ServerIDs = map[uint]uint{}
				}
				o.st.ServerIDs[e.LocalAppID] = resp.ID
			}
		case KindCompleteStep:
			err = o.replayStep(ctx, api, replayed, e)
		case KindSubmit:
			var srv *dtos.ApplicationResponse
			srv, err = o.resolve(ctx, api, replayed, e.LocalAppID)
			if err == nil {
				var resp *dtos.ApplicationResponse
				resp, err = api.SubmitApplication(ctx, srv.ID, e.Applied)
				if err == nil {
					replayed[e.LocalAppID] = resp
				}
			}
		default:
			err = fmt.Errorf("outbox: unknown entry kind %q", e.Kind)
		}
		if err != nil {
			if serr := o.save(); serr != nil {
				return serr
			}
			return err
		}

		o.st.Entries = o.st.Entries[1:]
		o.dropLocalIfDone(e.LocalAppID)
	}
	return o.save()
}

func (o *Outbox) replayStep(ctx context.Context, api API, replayed map[uint]*dtos.ApplicationResponse, e Entry) error {
	srv, err := o.resolve(ctx, api, replayed, e.LocalAppID)
	if err != nil {
		return err
	}
	for _, st := range srv.Steps {
		if st.Name == e.StepName {
			resp, err := api.CompleteStep(ctx, st.ID, e.StepData)
			if err != nil {
				return err
			}
			replayed[e.LocalAppID] = resp
			return nil
		}
	}
	return fmt.Errorf("outbox: server application %d has no step %q", srv.ID, e.StepName)
}

// resolve finds the server application a local ID replayed as, refetching
// it when the create landed in an earlier, interrupted drain.
func (o *Outbox) resolve(ctx context.Context, api API, replayed map[uint]*dtos.ApplicationResponse, localID uint) (*dtos.ApplicationResponse, error) {
	if srv, ok := replayed[localID]; ok {
		return srv, nil
	}
	serverID, ok := o.st.ServerIDs[localID]
	if !ok {
		return nil, fmt.Errorf("outbox: mutation for unreplayed application %d", localID)
	}
	srv, err := api.GetApplication(ctx, serverID)
	if err != nil {
		return nil, err
	}
	replayed[localID] = srv
	return srv, nil
}

// dropLocalIfDone removes the synthesized record once no queued entry
// references it anymore.
func (o *Outbox) dropLocalIfDone(localAppID uint) {
	for _, e := range o.st.Entries {
		if e.LocalAppID == localAppID {
			return
		}
	}
	delete(o.st.ServerIDs, localAppID)
	for i := range o.st.Local {
		if o.st.Local[i].ID == localAppID {
			o.st.Local = append(o.st.Local[:i], o.st.Local[i+1:]...)
			return
		}
	}
}

func (o *Outbox) find(id uint) *models.Application {
	for i := range o.st.Local {
		if o.st.Local[i].ID == id {
			return &o.st.Local[i]
		}
	}
	return nil
}

func (o *Outbox) save() error {
	b, err := json.MarshalIndent(o.st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(o.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(o.path, b, 0o644)
}
