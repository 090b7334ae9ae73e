package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/internal/ingestion/normalizer"
	"golang-trade-clearinghouse/internal/ingestion/notifier"
	"golang-trade-clearinghouse/pkg/common"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/remotestore"
)

var (
	// ErrConnect is reported when the drop location cannot be reached.
	ErrConnect = errors.New("remote store connect failed")
	// ErrArchive is reported when an ingested file could not be moved to the archive.
	ErrArchive = errors.New("archive failed")
)

// releaseLockScript deletes the lock only if this instance still owns it.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PollerService defines the interface for the recurring ingest-and-archive loop.
type PollerService interface {
	Start(ctx context.Context)
	RunCycle(ctx context.Context) dto.CycleReport
}

type pollerService struct {
	connector  remotestore.Connector
	normalizer *normalizer.Normalizer
	ingestion  IngestionService
	notifier   notifier.Notifier
	redis      redis.UniversalClient
	logger     *logger.Logger
	cfg        *config.Config

	schedule   cron.Schedule
	extensions map[string]struct{}
	failures   *cache.Cache
	instanceID string
	lockTTL    time.Duration
	running    atomic.Bool
}

// NewPollerService creates a new poller. rdb is only used for the cross-process
// cycle lock and may be nil when ingest.cycle_lock.enabled is false.
func NewPollerService(
	connector remotestore.Connector,
	norm *normalizer.Normalizer,
	ingestion IngestionService,
	notify notifier.Notifier,
	rdb redis.UniversalClient,
	log *logger.Logger,
	cfg *config.Config,
) (PollerService, error) {
	schedule, err := ParseSchedule(cfg.Ingest.Schedule)
	if err != nil {
		return nil, err
	}
	failureTTL, err := cfg.FailureLogTTL()
	if err != nil {
		return nil, err
	}
	lockTTL, err := cfg.CycleLockTTL()
	if err != nil {
		return nil, err
	}
	if cfg.Ingest.CycleLock.Enabled && rdb == nil {
		return nil, errors.New("ingest.cycle_lock requires redis.enabled")
	}

	extensions := make(map[string]struct{}, len(cfg.Ingest.AllowedExtensions))
	for _, ext := range cfg.Ingest.AllowedExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	return &pollerService{
		connector:  connector,
		normalizer: norm,
		ingestion:  ingestion,
		notifier:   notify,
		redis:      rdb,
		logger:     log,
		cfg:        cfg,
		schedule:   schedule,
		extensions: extensions,
		failures:   cache.New(failureTTL, 2*failureTTL),
		instanceID: uuid.NewString(),
		lockTTL:    lockTTL,
	}, nil
}

// ParseSchedule accepts a cron expression, a descriptor such as "@every 10s",
// or a bare duration such as "10s".
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("invalid ingest.schedule %q: interval must be positive", expr)
		}
		return cron.Every(d), nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid ingest.schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Start runs a cycle immediately and then on every schedule slot until ctx is done.
// Only one loop may run per poller; further calls return at once.
func (s *pollerService) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Poller already running, ignoring second start")
		return
	}
	defer s.running.Store(false)

	s.logger.Info("Poller started",
		logger.StringField("driver", s.connector.Driver()),
		logger.StringField("source_dir", s.cfg.Ingest.SourceDir),
		logger.StringField("schedule", s.cfg.Ingest.Schedule))

	for {
		if ctx.Err() != nil {
			s.logger.Info("Poller stopping")
			return
		}
		s.RunCycle(ctx)

		timer := time.NewTimer(time.Until(s.schedule.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Poller stopping")
			return
		case <-timer.C:
		}
	}
}

// RunCycle performs CONNECT, LIST, PROCESS_FILE for each eligible file, and DISCONNECT.
// It never panics and never returns an error; failures are recorded in the report.
func (s *pollerService) RunCycle(ctx context.Context) (report dto.CycleReport) {
	report = dto.CycleReport{ID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logger.WithCorrelationID(ctx, report.ID)

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Recovered from panic in ingest cycle", logger.Field("panic", r))
			report.Error = fmt.Sprintf("panic: %v", r)
		}
		report.FinishedAt = time.Now()
	}()

	if s.cfg.Ingest.CycleLock.Enabled {
		acquired, err := s.acquireLock(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to acquire cycle lock", logger.ErrorField(err))
			report.Error = err.Error()
			return report
		}
		if !acquired {
			s.logger.DebugContext(ctx, "Cycle lock held by another instance, skipping")
			report.Skipped = true
			return report
		}
		defer s.releaseLock(ctx)
	}

	session, err := s.connector.Connect(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrConnect, err)
		s.logFailure(ctx, "connect", "Failed to connect to remote store", logger.ErrorField(err))
		report.Error = err.Error()
		return report
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.WarnContext(ctx, "Failed to close remote session", logger.ErrorField(err))
		}
	}()

	files, err := s.list(ctx, session)
	if err != nil {
		s.logFailure(ctx, "list", "Failed to list source directory", logger.ErrorField(err))
		report.Error = err.Error()
		return report
	}

	for _, name := range files {
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "Shutdown requested, leaving remaining files for next run",
				logger.IntField("remaining", len(files)-len(report.Files)))
			break
		}
		// A file that has started is finished even if shutdown arrives mid-way.
		report.Files = append(report.Files, s.processFile(context.WithoutCancel(ctx), session, name))
	}

	if len(report.Files) > 0 {
		s.logger.InfoContext(ctx, "Ingest cycle finished",
			logger.IntField("files", len(report.Files)),
			logger.IntField("archived", len(report.Archived())))
	}
	return report
}

// list returns eligible file names in listing order: regular files with an allowed
// extension, excluding the archive directory.
func (s *pollerService) list(ctx context.Context, session remotestore.Session) ([]string, error) {
	entries, err := session.List(ctx, s.cfg.Ingest.SourceDir)
	if err != nil {
		return nil, err
	}

	archiveName := path.Base(s.cfg.Ingest.ArchiveDir)
	var names []string
	for _, e := range entries {
		if e.IsDir || e.Name == archiveName {
			continue
		}
		if _, ok := s.extensions[strings.ToLower(path.Ext(e.Name))]; !ok {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

func (s *pollerService) processFile(ctx context.Context, session remotestore.Session, name string) dto.FileReport {
	report := dto.FileReport{Filename: name}
	src := remotestore.Join(s.cfg.Ingest.SourceDir, name)

	content, err := remotestore.ReadFile(ctx, session, src)
	if err != nil {
		return s.fileFailed(ctx, report, dto.StageRead, name, err)
	}
	fingerprint := contentHash(content)

	res := s.normalizer.Normalize(content, name)
	if !res.HasData() {
		report.Status = dto.FileStatusSkipped
		report.Stage = dto.StageNormalize
		if res.Err != nil {
			report.Error = res.Err.Error()
		}
		s.logFailure(ctx, name+":"+fingerprint, "Skipping file: no valid data found",
			logger.StringField("filename", name),
			logger.StringField("status", string(res.Status)),
			logger.ErrorField(res.Err))
		return report
	}

	result, err := s.ingestion.Ingest(ctx, name, res.Records)
	if err != nil {
		return s.fileFailed(ctx, report, dto.StageIngest, name+":"+fingerprint, err)
	}
	report.TradesWritten = result.TradesWritten
	report.AlertsCreated = len(result.Alerts)

	for _, alert := range result.Alerts {
		// Sink failures are logged by the notifier and never undo a committed file.
		_ = s.notifier.NotifyAlert(ctx, alert)
	}

	if err := s.archive(ctx, session, name); err != nil {
		s.logger.ErrorContext(ctx, "CRITICAL: failed to archive ingested file, it will be reprocessed",
			logger.StringField("filename", name), logger.ErrorField(err))
		_ = s.notifier.NotifyCritical(ctx, "archive", err.Error(), name)
		report.Status = dto.FileStatusFailed
		report.Stage = dto.StageArchive
		report.Error = err.Error()
		return report
	}

	s.logger.InfoContext(ctx, "Archived file",
		logger.StringField("filename", name),
		logger.StringField("archive_dir", s.cfg.Ingest.ArchiveDir))
	report.Status = dto.FileStatusArchived
	return report
}

// archive moves name from the source to the archive directory, replacing any earlier copy.
func (s *pollerService) archive(ctx context.Context, session remotestore.Session, name string) error {
	src := remotestore.Join(s.cfg.Ingest.SourceDir, name)
	dst := remotestore.Join(s.cfg.Ingest.ArchiveDir, name)

	if err := session.Mkdir(ctx, s.cfg.Ingest.ArchiveDir); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrArchive, s.cfg.Ingest.ArchiveDir, err)
	}
	if err := session.Remove(ctx, dst); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrArchive, dst, err)
	}
	if err := session.Rename(ctx, src, dst); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrArchive, src, err)
	}
	return nil
}

func (s *pollerService) fileFailed(ctx context.Context, report dto.FileReport, stage, key string, err error) dto.FileReport {
	report.Status = dto.FileStatusFailed
	report.Stage = stage
	report.Error = err.Error()
	s.logFailure(ctx, stage+":"+key, "Failed to process file",
		logger.StringField("filename", report.Filename),
		logger.StringField("stage", stage),
		logger.ErrorField(err))
	return report
}

// logFailure logs at error level the first time key is seen within the failure TTL,
// and at debug level afterwards, so a stuck file does not flood the log every cycle.
func (s *pollerService) logFailure(ctx context.Context, key, msg string, fields ...logger.ZapField) {
	if _, seen := s.failures.Get(key); seen {
		s.logger.DebugContext(ctx, msg, fields...)
		return
	}
	s.failures.SetDefault(key, struct{}{})
	s.logger.ErrorContext(ctx, msg, fields...)
}

func (s *pollerService) acquireLock(ctx context.Context) (bool, error) {
	return s.redis.SetNX(ctx, common.RedisKeyIngestCycleLock, s.instanceID, s.lockTTL).Result()
}

func (s *pollerService) releaseLock(ctx context.Context) {
	err := releaseLockScript.Run(context.WithoutCancel(ctx), s.redis, []string{common.RedisKeyIngestCycleLock}, s.instanceID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "Failed to release cycle lock", logger.ErrorField(err))
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8])
}
