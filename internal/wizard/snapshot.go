package wizard

import (
	"fmt"

	"tailoring-bot/pkg/api"
)

// Snapshot is the persisted form of a wizard. Uploads still in flight are
// not captured.
type Snapshot struct {
	Flow         string                   `json:"flow"`
	Step         int                      `json:"step"`
	Form         Form                     `json:"form"`
	Images       map[api.ImageType]string `json:"images,omitempty"`
	SessionToken string                   `json:"session_token"`
	SubmissionID string                   `json:"submission_id,omitempty"`
	Phase        Phase                    `json:"phase"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Flow:         w.flow.Name,
		Step:         w.step,
		Form:         w.form,
		SessionToken: w.sessionToken,
		SubmissionID: w.submissionID,
		Phase:        w.phase,
	}
	for t, s := range w.images {
		if s.Status == ImageUploaded && s.URL != "" {
			if snap.Images == nil {
				snap.Images = make(map[api.ImageType]string)
			}
			snap.Images[t] = s.URL
		}
	}
	return snap
}

// Restore rebuilds a wizard from a snapshot taken with the same flow.
func Restore(opts Options, snap Snapshot) (*Wizard, error) {
	if snap.Flow != opts.Flow.Name {
		return nil, fmt.Errorf("snapshot flow %q does not match %q", snap.Flow, opts.Flow.Name)
	}
	w, err := New(opts)
	if err != nil {
		return nil, err
	}

	seeded := w.form.Order
	w.form = snap.Form
	if w.form.Order.Fabric == "" {
		w.form.Order.Fabric = seeded.Fabric
	}
	if w.form.Order.Quantity < 1 {
		w.form.Order.Quantity = seeded.Quantity
	}
	if snap.SessionToken != "" {
		w.sessionToken = snap.SessionToken
	}
	w.submissionID = snap.SubmissionID
	w.phase = snap.Phase

	w.step = snap.Step
	if w.step < 0 {
		w.step = 0
	}
	if w.step >= len(w.flow.Steps) {
		w.step = len(w.flow.Steps) - 1
	}
	if p := w.flow.PaymentStep(); p >= 0 && w.step == p && w.submissionID == "" {
		w.step = w.flow.LastDataStep()
	}

	for t, url := range snap.Images {
		if !t.Valid() || url == "" {
			continue
		}
		s := w.slot(t)
		s.seq, s.applied = 1, 1
		s.ImageState = ImageState{Status: ImageUploaded, URL: url}
	}
	return w, nil
}
