package intake

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDraftNotFound = errors.New("draft not found")

// Drafts keeps in-progress forms in memory and forgets them after ttl of
// inactivity.
type Drafts struct {
	mu    sync.Mutex
	forms map[string]*Form
	ttl   time.Duration
	now   func() time.Time
}

func NewDrafts(ttl time.Duration) *Drafts {
	return &Drafts{forms: make(map[string]*Form), ttl: ttl, now: time.Now}
}

func (d *Drafts) Create() *Form {
	f := NewForm(d.now())
	d.mu.Lock()
	d.forms[f.ID] = f
	d.mu.Unlock()
	return f
}

// Get returns the draft and refreshes its idle timer.
func (d *Drafts) Get(id string) (*Form, error) {
	now := d.now()
	d.mu.Lock()
	f, ok := d.forms[id]
	if ok && d.expired(f, now) {
		delete(d.forms, id)
		ok = false
	}
	d.mu.Unlock()
	if !ok {
		return nil, ErrDraftNotFound
	}
	f.touch(now)
	return f, nil
}

func (d *Drafts) Delete(id string) {
	d.mu.Lock()
	delete(d.forms, id)
	d.mu.Unlock()
}

func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.forms)
}

// Sweep drops expired drafts, cancelling their unfinished uploads, and
// returns how many were dropped.
func (d *Drafts) Sweep() int {
	now := d.now()
	var dropped []*Form
	d.mu.Lock()
	for id, f := range d.forms {
		if d.expired(f, now) {
			delete(d.forms, id)
			dropped = append(dropped, f)
		}
	}
	d.mu.Unlock()

	for _, f := range dropped {
		f.mu.Lock()
		for _, a := range f.attachments {
			a.Task.Cancel()
		}
		f.mu.Unlock()
	}
	return len(dropped)
}

// Run sweeps every interval until ctx is done.
func (d *Drafts) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.Sweep()
		}
	}
}

func (d *Drafts) expired(f *Form, now time.Time) bool {
	return d.ttl > 0 && now.Sub(f.lastTouched()) > d.ttl
}
