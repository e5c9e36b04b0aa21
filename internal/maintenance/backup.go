package maintenance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/model"
	"github.com/openmunicipal/portal/internal/storage"
)

// BackupService runs the two-phase backup protocol: create a pending
// record, stream the snapshot into the object store, then complete the
// record. If the copy fails after the record exists, completion is still
// attempted with success=false so the record does not linger in pending
// silently. A record orphaned in pending by a crash between the phases is
// a known limitation; it is visible through the pending count in
// BackupStats but never auto-repaired.
type BackupService struct {
	gw     Gateway
	store  storage.Store
	sink   Sink
	logger zerolog.Logger
}

func NewBackupService(gw Gateway, store storage.Store, sink Sink, logger zerolog.Logger) *BackupService {
	return &BackupService{gw: gw, store: store, sink: sink, logger: logger}
}

type copyResult struct {
	rawBytes int64
	err      error
}

func (s *BackupService) CreateManualBackup(ctx context.Context, actor *string) bool {
	started := time.Now()

	rec, err := s.gw.CreateBackupRecord(ctx, model.BackupTypeManual, nil, actor)
	if err != nil {
		// No record exists; the audit entry carries no backup_id.
		recordAction(ctx, s.sink, s.logger, model.ActionCreateManualBackup, actor, started, err, nil)
		return false
	}

	key := fmt.Sprintf("%s.sql.gz", rec.ID)
	storedBytes, copyErr := s.copySnapshot(ctx, key, rec.Tables)

	success := copyErr == nil
	var storagePath *string
	if success {
		storagePath = &key
	}

	completed, completeErr := s.gw.CompleteBackupRecord(ctx, rec.ID, storedBytes, storagePath, success)

	detail := map[string]any{
		"backup_id":  rec.ID,
		"size_bytes": storedBytes,
		"success":    success && completeErr == nil && completed,
	}

	actionErr := copyErr
	switch {
	case completeErr != nil:
		// The record could not be transitioned and may remain pending.
		detail["completion_failed"] = true
		if actionErr == nil {
			actionErr = completeErr
		} else {
			actionErr = fmt.Errorf("%w; additionally, completing the record failed: %v", actionErr, completeErr)
		}
	case !completed:
		if actionErr == nil {
			actionErr = fmt.Errorf("backup record %s was not in pending state at completion", rec.ID)
		}
	}

	recordAction(ctx, s.sink, s.logger, model.ActionCreateManualBackup, actor, started, actionErr, detail)

	if actionErr != nil {
		s.logger.Error().Err(actionErr).Str("backup_id", rec.ID).Msg("manual backup failed")
		return false
	}
	s.logger.Info().Str("backup_id", rec.ID).Int64("size_bytes", storedBytes).
		Dur("took", time.Since(started)).Msg("manual backup completed")
	return true
}

// copySnapshot streams the table snapshot through gzip into the object
// store and returns the stored (compressed) byte count.
func (s *BackupService) copySnapshot(ctx context.Context, key string, tables []string) (int64, error) {
	pr, pw := io.Pipe()
	results := make(chan copyResult, 1)

	go func() {
		gz := gzip.NewWriter(pw)
		n, err := s.gw.CopySnapshot(ctx, gz, tables)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
		results <- copyResult{rawBytes: n, err: err}
	}()

	stored, putErr := s.store.Put(ctx, key, pr)
	// Unblock the writer if the store bailed out mid-stream.
	pr.CloseWithError(putErr)
	res := <-results

	if res.err != nil {
		return stored, fmt.Errorf("snapshot copy: %w", res.err)
	}
	if putErr != nil {
		return stored, fmt.Errorf("store snapshot: %w", putErr)
	}

	s.logger.Debug().Int64("raw_bytes", res.rawBytes).Int64("stored_bytes", stored).Msg("snapshot copied")
	return stored, nil
}

// Stats returns the full backup aggregation computed by the backing store
// in one call, so the numbers are one consistent snapshot. Pure read, no
// audit entry.
func (s *BackupService) Stats(ctx context.Context) (*model.BackupStats, error) {
	return s.gw.BackupStats(ctx)
}

// List returns backup records newest first. Pure read, no audit entry.
func (s *BackupService) List(ctx context.Context, limit, offset int) ([]model.BackupRecord, error) {
	return s.gw.ListBackups(ctx, limit, offset)
}
