package organizer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"xritd/internal/logging"
	"xritd/internal/product"
	"xritd/internal/services"
	"xritd/internal/xrit"
)

type fileStamp struct {
	size int64
	mod  time.Time
}

// ScanResult summarises one Scan pass.
type ScanResult struct {
	Renamed  int
	Ingested int
	Rejected int
	Expired  int
	Stalled  int
}

// Scan ingests files in the folder that have not been seen yet, then expires
// groups past product.GroupLifetime and reports incomplete groups past
// product.MarkAfter once.
func (o *Organizer) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	logger := logging.WithContext(ctx, o.logger)

	entries, err := os.ReadDir(o.dir)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "organizer", "scan", "read folder", err)
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(o.pattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(o.dir, entry.Name())
		present[path] = struct{}{}
		if o.hasSeen(path) || o.rejectedUnchanged(path) {
			continue
		}

		if o.renameIncoming {
			renamed, found, err := xrit.RenameToDecodedName(path)
			if err != nil {
				logger.Debug("rename to decoded name failed", logging.String(logging.FieldPath, path), logging.Error(err))
				continue
			}
			if found && renamed != path {
				result.Renamed++
				delete(present, path)
				present[renamed] = struct{}{}
				path = renamed
				if o.hasSeen(path) {
					continue
				}
			}
		}

		res, err := o.Ingest(ctx, path)
		switch {
		case err == nil:
			if res.Inserted {
				result.Ingested++
			}
		case errors.Is(err, services.ErrValidation):
			result.Rejected++
			o.markRejected(path)
			logging.WarnWithContext(logger, "segment rejected", "segment_rejected",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldErrorKind, string(services.Classify(err))),
				logging.String(logging.FieldImpact, "file is retried when its size or modification time changes"),
				logging.String(logging.FieldErrorHint, "inspect the file with `xrit inspect`"),
			)
		case isNotExist(err):
			delete(present, path)
		default:
			logger.Debug("segment ingest deferred", logging.String(logging.FieldPath, path), logging.Error(err))
		}
	}
	o.forgetMissing(present)

	now := o.now()
	for key, group := range o.Groups() {
		switch {
		case group.GroupTimeout(now):
			if o.remove(ctx, key, "expired") {
				result.Expired++
				logging.WarnWithContext(logger, "group expired", "group_expired",
					logging.Int64(logging.FieldGroupKey, int64(key)),
					logging.String("group", group.String()),
					logging.String(logging.FieldImpact, "unprocessed segments of this group are abandoned"),
					logging.String(logging.FieldErrorHint, "check reception for missing segments"),
				)
			}
		case group.ReadyToMark(now) && !group.Stalled && !group.IsComplete():
			result.Stalled++
			o.Update(key, func(g *product.Group) { g.Stalled = true })
			logger.Info("group still incomplete",
				logging.Int64(logging.FieldGroupKey, int64(key)),
				logging.String("group", group.String()),
			)
		}
	}
	return result, nil
}

func (o *Organizer) hasSeen(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.seen[path]
	return ok
}

func statFile(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{size: info.Size(), mod: info.ModTime()}, true
}

// rejectedUnchanged reports whether path was rejected before and has not been
// written to since.
func (o *Organizer) rejectedUnchanged(path string) bool {
	o.mu.Lock()
	prev, ok := o.rejected[path]
	o.mu.Unlock()
	if !ok {
		return false
	}
	cur, ok := statFile(path)
	return ok && cur.size == prev.size && cur.mod.Equal(prev.mod)
}

func (o *Organizer) markRejected(path string) {
	stamp, ok := statFile(path)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[path] = stamp
}

// forgetMissing drops seen and rejected entries for files that are no longer
// in the folder.
func (o *Organizer) forgetMissing(present map[string]struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for path := range o.seen {
		if _, ok := present[path]; !ok {
			delete(o.seen, path)
		}
	}
	for path := range o.rejected {
		if _, ok := present[path]; !ok {
			delete(o.rejected, path)
		}
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
