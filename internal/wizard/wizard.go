// Package wizard models the four-stage application wizard as an explicit
// state machine. Steps form a closed set and transitions are restricted to
// the adjacent step in either direction, so an out-of-range or skipped
// step is unrepresentable.
package wizard

import (
	"fmt"

	"github.com/careertrack/careertrack/internal/models"
)

// Step is one wizard stage.
type Step int

const (
	StepDetails Step = iota
	StepResume
	StepCoverLetter
	StepReview
	// StepDone is the terminal state entered after the review step's
	// submission succeeds. No transitions leave it.
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepResume:
		return "resume"
	case StepCoverLetter:
		return "cover_letter"
	case StepReview:
		return "review"
	case StepDone:
		return "done"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// WireName maps a wizard step to the step-record name used by the API.
func (s Step) WireName() string {
	switch s {
	case StepDetails:
		return models.StepPersonalInfo
	case StepResume:
		return models.StepResume
	case StepCoverLetter:
		return models.StepCoverLetter
	case StepReview:
		return models.StepReview
	}
	return ""
}

// FormData is the data entered so far, keyed by field name. Retreating
// never clears it.
type FormData map[string]string

// FieldError describes one failed required-field check.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationError carries all field errors for a rejected Advance.
type ValidationError struct {
	Step   Step
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: %d field(s) invalid", e.Step, len(e.Fields))
}

// JobInfo is the posting the wizard was opened for.
type JobInfo struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Source      string
}

// Prefilled reports whether the posting already carries enough detail for
// the details step to be skipped on open.
func (j JobInfo) Prefilled() bool {
	return j.Title != "" && j.Company != "" && j.URL != ""
}

// Wizard sequences the four stages for one application.
type Wizard struct {
	step Step
	job  JobInfo
	form FormData
}

// New opens a wizard for the given posting. When the posting is already
// complete the details step has nothing to collect, so the wizard starts
// directly at resume selection.
func New(job JobInfo) *Wizard {
	w := &Wizard{step: StepDetails, job: job, form: FormData{}}
	if job.Prefilled() {
		w.step = StepResume
	}
	return w
}

// Step returns the current stage.
func (w *Wizard) Step() Step { return w.step }

// Job returns the posting the wizard was opened for.
func (w *Wizard) Job() JobInfo { return w.job }

// Form returns the accumulated form data.
func (w *Wizard) Form() FormData { return w.form }

// requiredFields lists what each stage needs before it can be left
// forward. Notes are always optional.
var requiredFields = map[Step][]string{
	StepDetails:     {"job_title", "company"},
	StepResume:      {"resume_id"},
	StepCoverLetter: {},
}

// Validate checks the current step's required fields against the merged
// form data without moving the wizard.
func (w *Wizard) Validate(data FormData) *ValidationError {
	merged := w.merged(data)
	var errs []FieldError
	for _, f := range requiredFields[w.step] {
		if merged[f] == "" {
			errs = append(errs, FieldError{Field: f, Message: "required"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Step: w.step, Fields: errs}
	}
	return nil
}

// Advance merges data into the form and moves to the next stage. On a
// validation failure the wizard stays where it is and the data is kept so
// the user can correct only the offending fields. Advance is not defined
// for the review stage; review completes via Finish.
func (w *Wizard) Advance(data FormData) error {
	if w.step == StepReview || w.step == StepDone {
		return fmt.Errorf("cannot advance from %s", w.step)
	}
	w.absorb(data)
	if verr := w.Validate(nil); verr != nil {
		return verr
	}
	w.step++
	return nil
}

// Retreat moves back one stage unconditionally, keeping all entered data.
// At the first reachable stage it is a no-op.
func (w *Wizard) Retreat() {
	if w.step == StepDone || w.step == StepDetails {
		return
	}
	// A prefilled wizard never shows the details step, so resume is its
	// floor.
	if w.job.Prefilled() && w.step == StepResume {
		return
	}
	w.step--
}

// Finish marks the review stage submitted, entering the terminal state.
func (w *Wizard) Finish() error {
	if w.step != StepReview {
		return fmt.Errorf("cannot finish from %s", w.step)
	}
	w.step = StepDone
	return nil
}

func (w *Wizard) absorb(data FormData) {
	for k, v := range data {
		w.form[k] = v
	}
}

func (w *Wizard) merged(data FormData) FormData {
	if len(data) == 0 {
		return w.form
	}
	m := FormData{}
	for k, v := range w.form {
		m[k] = v
	}
	for k, v := range data {
		m[k] = v
	}
	return m
}

// Details builds the form data for a wizard opened with a prefilled
// posting, used when the details step is skipped but the create call
// still needs the fields.
func (j JobInfo) Details() FormData {
	return FormData{
		"job_title": j.Title,
		"company":   j.Company,
	}
}
