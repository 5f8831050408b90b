package organizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"xritd/internal/config"
	"xritd/internal/journal"
	"xritd/internal/logging"
	"xritd/internal/metrics"
	"xritd/internal/product"
	"xritd/internal/services"
	"xritd/internal/xrit"
)

// SegmentJournal persists accepted segments for Restore.
type SegmentJournal interface {
	Record(ctx context.Context, e journal.Entry) error
	Forget(ctx context.Context, folder string, key int64) error
	ForgetPath(ctx context.Context, folder, path string) error
	Load(ctx context.Context, folder string) ([]journal.Entry, error)
}

// Options configures an Organizer.
type Options struct {
	Folder          string
	Dir             string
	Pattern         string
	Bucket          time.Duration
	CropFullDisk    bool
	ValidateTrailer bool
	RenameIncoming  bool
	Journal         SegmentJournal
	Metrics         *metrics.Collectors
	Logger          *slog.Logger
	Now             func() time.Time
}

// Organizer owns the live groups of one folder.
type Organizer struct {
	folder          string
	dir             string
	pattern         string
	bucket          time.Duration
	cropFullDisk    bool
	validateTrailer bool
	renameIncoming  bool
	journal         SegmentJournal
	metrics         *metrics.Collectors
	logger          *slog.Logger
	now             func() time.Time

	mu     sync.Mutex
	groups map[product.GroupKey]*product.Group
	seen   map[string]struct{}
	// rejected holds the size and mtime of files that failed to decode, so
	// a file still being written is retried once it grows.
	rejected map[string]fileStamp
}

// IngestResult describes where an ingested segment went.
type IngestResult struct {
	Path     string
	Key      product.GroupKey
	Route    Route
	Index    int
	Inserted bool
	Complete bool
}

// New constructs an Organizer.
func New(opts Options) *Organizer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Bucket <= 0 {
		opts.Bucket = time.Second
	}
	if opts.Pattern == "" {
		opts.Pattern = "*"
	}
	return &Organizer{
		folder:          opts.Folder,
		dir:             opts.Dir,
		pattern:         opts.Pattern,
		bucket:          opts.Bucket,
		cropFullDisk:    opts.CropFullDisk,
		validateTrailer: opts.ValidateTrailer,
		renameIncoming:  opts.RenameIncoming,
		journal:         opts.Journal,
		metrics:         opts.Metrics,
		logger:          logging.NewComponentLogger(opts.Logger, "organizer"),
		now:             opts.Now,
		groups:          make(map[product.GroupKey]*product.Group),
		seen:            make(map[string]struct{}),
		rejected:        make(map[string]fileStamp),
	}
}

// NewFromConfig builds an Organizer for one configured folder. j may be nil.
func NewFromConfig(cfg *config.Config, folder config.Folder, j SegmentJournal, m *metrics.Collectors, logger *slog.Logger) *Organizer {
	return New(Options{
		Folder:          folder.Name,
		Dir:             folder.Path,
		Pattern:         cfg.Workflow.ScanPattern,
		Bucket:          cfg.Workflow.TimeBucket(),
		CropFullDisk:    cfg.Workflow.CropFullDisk,
		ValidateTrailer: cfg.Workflow.ValidateTrailerCRC,
		RenameIncoming:  cfg.Workflow.RenameIncoming,
		Journal:         j,
		Metrics:         m,
		Logger:          logger,
	})
}

// Folder returns the folder name used in logs and metrics.
func (o *Organizer) Folder() string { return o.folder }

// Ingest decodes one segment file and files it into its group. A segment
// whose index is already present is ignored, keeping the first path.
// Undecodable files return an error marked services.ErrValidation and are
// left untouched.
func (o *Organizer) Ingest(ctx context.Context, path string) (IngestResult, error) {
	return o.ingest(ctx, path, o.now())
}

func (o *Organizer) ingest(ctx context.Context, path string, received time.Time) (IngestResult, error) {
	result := IngestResult{Path: path}
	logger := logging.WithContext(ctx, o.logger)

	if o.validateTrailer {
		if err := xrit.VerifyTrailer(path); err != nil {
			o.metrics.SegmentRejected(o.folder, string(services.Classify(err)))
			return result, err
		}
	}
	raw, err := xrit.ReadHeader(path)
	if err != nil {
		o.metrics.SegmentRejected(o.folder, string(services.Classify(err)))
		return result, err
	}
	header, err := xrit.ParseHeader(raw)
	if err != nil {
		o.metrics.SegmentRejected(o.folder, string(services.Classify(err)))
		return result, err
	}
	if !header.HasProduct {
		o.metrics.SegmentRejected(o.folder, string(services.KindValidation))
		return result, services.Wrap(services.ErrValidation, "organizer", "ingest", "missing product header", nil)
	}

	route := Resolve(header)
	frame := received
	if header.HasTime {
		frame = header.Time
	}
	index, maxSegments := 0, 1
	if header.HasSegment {
		index, maxSegments = int(header.Segment.Sequence), int(header.Segment.MaxSegment)
	}
	checksum, err := xrit.ChecksumFile(path)
	if err != nil {
		o.metrics.SegmentRejected(o.folder, string(services.Classify(err)))
		return result, err
	}
	key := product.NewGroupKey(header.Product.ProductID, route.RegionCode, frame, o.bucket)

	o.mu.Lock()
	group, exists := o.groups[key]
	if !exists {
		group = o.newGroup(key, route, frame, received)
		o.groups[key] = group
	} else if received.Before(group.Created) {
		group.Created = received
	}
	if header.HasNavigation && !group.HasNavigationData {
		applyNavigation(group, header.Navigation)
	}
	buf := route.buffer(group)
	buf.SetMaxSegments(maxSegments)
	if buf.Timestamp == 0 {
		buf.Timestamp = frame.Unix()
	}
	inserted := buf.Insert(index, path, checksum)
	existing := buf.Segments[index]
	disagrees := !inserted && existing != path && buf.Checksums[index] != checksum
	complete := buf.IsComplete()
	o.seen[path] = struct{}{}
	delete(o.rejected, path)
	tracked := len(o.groups)
	o.mu.Unlock()

	o.metrics.SetGroupsTracked(o.folder, tracked)
	result.Key, result.Route, result.Index = key, route, index
	result.Inserted, result.Complete = inserted, complete

	if !inserted {
		o.metrics.SegmentDuplicate(o.folder)
		if disagrees {
			logger.Debug("duplicate segment differs from stored copy",
				logging.Int64(logging.FieldGroupKey, int64(key)),
				logging.String(logging.FieldChannel, route.Channel),
				logging.Int(logging.FieldSegment, index),
				logging.String("kept", existing),
				logging.String(logging.FieldPath, path),
			)
		}
		return result, nil
	}

	o.metrics.SegmentIngested(o.folder, string(route.Pipeline))
	if !exists {
		logger.Info("new product group",
			logging.Int64(logging.FieldGroupKey, int64(key)),
			logging.String("satellite", route.Satellite),
			logging.String("region", route.Region),
			logging.Time("frame_time", frame),
		)
	}
	if o.journal != nil {
		entry := journal.Entry{
			Folder:      o.folder,
			GroupKey:    int64(key),
			Channel:     route.Channel,
			Index:       index,
			Path:        path,
			MaxSegments: maxSegments,
			Checksum:    checksum,
			ReceivedAt:  received,
		}
		if err := o.journal.Record(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_record_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment will not survive a restart"),
				logging.String(logging.FieldErrorHint, "check free space and permissions of the journal database"),
			)
		}
	}
	return result, nil
}

func (o *Organizer) newGroup(key product.GroupKey, route Route, frame, received time.Time) *product.Group {
	group := product.NewGroup(key, received)
	group.SatelliteName = route.Satellite
	group.RegionName = route.Region
	group.FrameTime = frame
	group.CropImage = o.cropFullDisk && route.Region == "FD"
	return group
}

func applyNavigation(group *product.Group, nav xrit.Navigation) {
	if lon, ok := nav.Longitude(); ok {
		group.SatelliteLongitude = lon
	}
	group.FallBackColumnOffset = int(nav.COFF)
	group.FallBackLineOffset = int(nav.LOFF)
	group.FallBackColumnScalingFactor = float64(nav.CFAC)
	group.FallBackLineScalingFactor = float64(nav.LFAC)
	group.HasNavigationData = true
}

// Groups returns a deep copy of every live group.
func (o *Organizer) Groups() map[product.GroupKey]*product.Group {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make(map[product.GroupKey]*product.Group, len(o.groups))
	for key, group := range o.groups {
		snapshot[key] = group.Clone()
	}
	return snapshot
}

// Len returns the number of live groups.
func (o *Organizer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.groups)
}

// Update applies fn to the live group under the organizer lock. It reports
// false when the group no longer exists.
func (o *Organizer) Update(key product.GroupKey, fn func(*product.Group)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	group, ok := o.groups[key]
	if !ok {
		return false
	}
	fn(group)
	return true
}

// Remove deletes a group. Removing an absent group is a no-op that reports
// false.
func (o *Organizer) Remove(ctx context.Context, key product.GroupKey) bool {
	return o.remove(ctx, key, "processed")
}

func (o *Organizer) remove(ctx context.Context, key product.GroupKey, reason string) bool {
	o.mu.Lock()
	_, ok := o.groups[key]
	delete(o.groups, key)
	tracked := len(o.groups)
	o.mu.Unlock()
	if !ok {
		return false
	}

	o.metrics.GroupRemoved(o.folder, reason)
	o.metrics.SetGroupsTracked(o.folder, tracked)
	if o.journal != nil {
		if err := o.journal.Forget(ctx, o.folder, int64(key)); err != nil {
			logging.WarnWithContext(o.logger, "journal cleanup failed", "journal_forget_failed",
				logging.Int64(logging.FieldGroupKey, int64(key)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale rows are pruned by maintenance"),
			)
		}
	}
	o.logger.Debug("group removed",
		logging.Int64(logging.FieldGroupKey, int64(key)),
		logging.String("reason", reason),
	)
	return true
}

// Restore replays the journal, dropping rows whose file has disappeared. It
// returns the number of segments restored.
func (o *Organizer) Restore(ctx context.Context) (int, error) {
	if o.journal == nil {
		return 0, nil
	}
	entries, err := o.journal.Load(ctx, o.folder)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "organizer", "restore", "load journal", err)
	}
	restored := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		res, err := o.ingest(ctx, entry.Path, entry.ReceivedAt)
		if err != nil {
			if errors.Is(err, services.ErrValidation) || isNotExist(err) {
				_ = o.journal.ForgetPath(ctx, o.folder, entry.Path)
				continue
			}
			return restored, err
		}
		if res.Inserted {
			restored++
		}
	}
	if restored > 0 {
		o.logger.Info("reassembly state restored",
			logging.Int("segments", restored),
			logging.Int("groups", o.Len()),
		)
	}
	return restored, nil
}
