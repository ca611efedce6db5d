package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/store"
)

// Upload is an incoming file.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// File is a stored document ready to be served.
type File struct {
	Path string
	Name string
}

// Complete stores the attachment, marks the schedule completed and sends the
// completion notice. The attachment is written before the record; if the
// record update fails the new file is removed again.
func (s *Service) Complete(ctx context.Context, id int64, remark string, file *Upload) (*model.MaintenanceSchedule, error) {
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return nil, store.Invalid("remark", "is required")
	}
	if file == nil || file.Body == nil || file.Size <= 0 {
		return nil, store.Invalid("attachment", "a non-empty file is required")
	}

	current, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusCompleted {
		return nil, fmt.Errorf("schedule %d: %w", id, store.ErrAlreadyCompleted)
	}

	ref, err := s.save(s.storage.CompletionDir, current, file)
	if err != nil {
		return nil, err
	}

	completed, err := s.store.CompleteSchedule(ctx, id, store.Completion{
		Remark:         remark,
		AttachmentPath: ref,
		CompletedAt:    s.now().UTC(),
	})
	if err != nil {
		s.removeQuietly(ref, id)
		return nil, err
	}

	if old := current.CompletionAttachmentPath; old != "" && old != ref {
		s.removeQuietly(old, id)
	}
	s.metrics.Completion()
	s.log.Info("Schedule completed", zap.Int64("schedule_id", id), zap.String("attachment", ref))

	if s.notifier != nil {
		s.notifier.SendCompletion(ctx, completed)
	}
	return completed, nil
}

// AttachChecksheet stores a checksheet and replaces any previous one.
func (s *Service) AttachChecksheet(ctx context.Context, id int64, file *Upload) (*model.MaintenanceSchedule, error) {
	if file == nil || file.Body == nil || file.Size <= 0 {
		return nil, store.Invalid("file", "a non-empty file is required")
	}

	current, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	ref, err := s.save(s.storage.ChecksheetDir, current, file)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetChecksheetPath(ctx, id, ref); err != nil {
		s.removeQuietly(ref, id)
		return nil, err
	}

	if old := current.ChecksheetPath; old != "" && old != ref {
		s.removeQuietly(old, id)
	}
	s.log.Info("Checksheet attached", zap.Int64("schedule_id", id), zap.String("checksheet", ref))
	return s.store.GetSchedule(ctx, id)
}

// RemoveChecksheet deletes the checksheet file and clears the reference.
// A file that is already gone still clears the reference; any other removal
// failure, including a reference outside the storage root, is returned and
// the reference is kept.
func (s *Service) RemoveChecksheet(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	current, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ChecksheetPath == "" {
		return current, nil
	}

	if err := s.blobs.Remove(current.ChecksheetPath); err != nil {
		return nil, fmt.Errorf("failed to remove checksheet of schedule %d: %w", id, err)
	}
	if err := s.store.SetChecksheetPath(ctx, id, ""); err != nil {
		return nil, err
	}
	s.log.Info("Checksheet removed", zap.Int64("schedule_id", id))
	return s.store.GetSchedule(ctx, id)
}

// ChecksheetFile locates the stored checksheet of a schedule.
func (s *Service) ChecksheetFile(ctx context.Context, id int64) (*File, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.file(sched.ChecksheetPath, "checksheet", id)
}

// CompletionAttachmentFile locates the stored completion attachment of a schedule.
func (s *Service) CompletionAttachmentFile(ctx context.Context, id int64) (*File, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.file(sched.CompletionAttachmentPath, "completion attachment", id)
}

func (s *Service) file(ref, what string, id int64) (*File, error) {
	if ref == "" {
		return nil, fmt.Errorf("%s of schedule %d: %w", what, id, store.ErrNotFound)
	}
	abs, err := s.blobs.Resolve(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s of schedule %d: %w", what, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s of schedule %d: %w", what, id, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s of schedule %d: %w", what, id, store.ErrNotFound)
	}
	return &File{Path: abs, Name: path.Base(ref)}, nil
}

// save writes an upload, named after the machine, below dir.
func (s *Service) save(dir string, sched *model.MaintenanceSchedule, file *Upload) (string, error) {
	stem := sched.Machine.Code
	if strings.TrimSpace(stem) == "" {
		stem = sched.Machine.Name
	}
	ref, n, err := s.blobs.Save(dir, stem, file.Name, file.Body)
	if err != nil {
		return "", fmt.Errorf("failed to store upload for schedule %d: %w", sched.ID, err)
	}
	if n == 0 {
		s.removeQuietly(ref, sched.ID)
		return "", store.Invalid("file", "uploaded file is empty")
	}
	return ref, nil
}

// removeQuietly deletes a stored file and only logs a failure.
func (s *Service) removeQuietly(ref string, id int64) {
	if ref == "" {
		return
	}
	if err := s.blobs.Remove(ref); err != nil {
		s.log.Warn("Failed to remove stored file",
			zap.Int64("schedule_id", id),
			zap.String("path", ref),
			zap.Error(err),
		)
	}
}
