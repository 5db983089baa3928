package intake

import (
	"context"
	"errors"
	"io"
	"time"

	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
	"habilitaciones/internal/model"
	"habilitaciones/internal/notify"
	"habilitaciones/internal/service"
	"habilitaciones/internal/uploader"
)

const noticeTimeout = 30 * time.Second

// Service drives drafts through editing, uploads and submission.
type Service struct {
	drafts   *Drafts
	uploads  *uploader.Uploader
	subs     service.SubmissionService
	notifier notify.Notifier
	log      *logging.Logger
	metrics  *metrics.Metrics
}

func NewService(drafts *Drafts, uploads *uploader.Uploader, subs service.SubmissionService, notifier notify.Notifier, log *logging.Logger, m *metrics.Metrics) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		drafts:   drafts,
		uploads:  uploads,
		subs:     subs,
		notifier: notifier,
		log:      log.With("intake"),
		metrics:  m,
	}
}

func (s *Service) Create() View {
	return s.drafts.Create().Snapshot()
}

func (s *Service) Get(id string) (View, error) {
	f, err := s.drafts.Get(id)
	if err != nil {
		return View{}, err
	}
	return f.Snapshot(), nil
}

func (s *Service) SetFields(id string, values map[string]string) (View, error) {
	return s.apply(id, func(f *Form) error { return f.SetFields(values) })
}

func (s *Service) Next(id string) (View, error) {
	return s.apply(id, func(f *Form) error { _, err := f.Next(); return err })
}

func (s *Service) Back(id string) (View, error) {
	return s.apply(id, func(f *Form) error { _, err := f.Back(); return err })
}

func (s *Service) apply(id string, fn func(*Form) error) (View, error) {
	f, err := s.drafts.Get(id)
	if err != nil {
		return View{}, err
	}
	if err := fn(f); err != nil {
		return View{}, err
	}
	return f.Snapshot(), nil
}

// AddAttachment starts uploading r into slotID and records it on the draft.
func (s *Service) AddAttachment(ctx context.Context, id, slotID, name string, r io.Reader, size int64, contentType string) (AttachmentView, error) {
	f, err := s.drafts.Get(id)
	if err != nil {
		return AttachmentView{}, err
	}
	if _, ok := LookupSlot(slotID); !ok {
		return AttachmentView{}, ErrUnknownSlot
	}
	if err := f.checkEditable(); err != nil {
		return AttachmentView{}, err
	}

	task, err := s.uploads.Start(ctx, slotID, name, r, size, contentType)
	if err != nil {
		return AttachmentView{}, err
	}
	a, err := f.AddAttachment(slotID, task)
	if err != nil {
		task.Cancel()
		return AttachmentView{}, err
	}
	return AttachmentView{ID: a.ID, Slot: a.Slot, Name: task.Name, Progress: task.Percent(), Done: task.Finished(), URL: task.URL()}, nil
}

// RemoveAttachment drops the attachment from the draft, then deletes the
// stored object. Storage failures do not bring the attachment back.
func (s *Service) RemoveAttachment(ctx context.Context, id, attachmentID string) error {
	f, err := s.drafts.Get(id)
	if err != nil {
		return err
	}
	a, err := f.RemoveAttachment(attachmentID)
	if err != nil {
		return err
	}
	if !a.Task.Finished() {
		a.Task.Cancel()
		<-a.Task.Done()
	}
	_ = s.uploads.Remove(ctx, a.Task.Key, a.Task.ID)
	return nil
}

// Submit validates the draft, waits for its uploads and stores one
// submission. On success the draft becomes read-only; on a write failure it
// stays editable.
func (s *Service) Submit(ctx context.Context, id string) (*model.Submission, error) {
	f, err := s.drafts.Get(id)
	if err != nil {
		return nil, err
	}

	rec, atts, err := f.beginSubmit()
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.Submission(metrics.ResultBlocked)
		}
		return nil, err
	}

	var stored *model.Submission
	defer func() { f.finishSubmit(stored) }()

	resolved := make(map[string]bool)
	for _, a := range atts {
		if err := a.Task.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error("submit_upload_skipped", err, map[string]any{"draft_id": f.ID, "slot": a.Slot})
			continue
		}
		rec.FileURLs = append(rec.FileURLs, a.Task.URL())
		resolved[a.Slot] = true
	}

	var missing []string
	for _, slot := range Slots {
		if slot.Required(rec.PersonType) && !resolved[slot.ID] {
			missing = append(missing, slot.ID)
		}
	}
	if len(missing) > 0 {
		s.metrics.Submission(metrics.ResultBlocked)
		return nil, &ValidationError{Attachments: missing}
	}

	out, err := s.subs.Create(ctx, &rec)
	if err != nil {
		s.metrics.Submission(metrics.ResultError)
		s.log.Error("submit", err, map[string]any{"draft_id": f.ID})
		return nil, err
	}
	stored = out
	s.metrics.Submission(metrics.ResultSuccess)
	s.log.Info("submit", map[string]any{"draft_id": f.ID, "submission_id": out.ID, "attachments": len(out.FileURLs)})

	go s.sendNotice(context.WithoutCancel(ctx), *out)
	return out, nil
}

func (s *Service) sendNotice(ctx context.Context, sub model.Submission) {
	ctx, cancel := context.WithTimeout(ctx, noticeTimeout)
	defer cancel()

	if err := s.notifier.SubmissionReceived(ctx, sub); err != nil {
		s.metrics.Notice(metrics.ResultError)
		s.log.Error("confirmation_notice", err, map[string]any{"submission_id": sub.ID})
		return
	}
	s.metrics.Notice(metrics.ResultSuccess)
}
