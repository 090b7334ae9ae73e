package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/internal/ingestion/compliance"
	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/internal/ingestion/normalizer"
	"golang-trade-clearinghouse/internal/ingestion/repository"
	"golang-trade-clearinghouse/internal/ingestion/testutil"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/remotestore"
)

var tradeDay = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	alerts   []dto.CreatedAlert
	critical []string
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) NotifyAlert(_ context.Context, alert dto.CreatedAlert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingNotifier) NotifyCritical(_ context.Context, _, _, data string) error {
	r.critical = append(r.critical, data)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func testLogger(t *testing.T) *logger.Logger {
	return logger.Wrap(zaptest.NewLogger(t))
}

func newIngestion(t *testing.T, store repository.Store) IngestionService {
	engine := compliance.NewEngine(testLogger(t), compliance.NewBasketConcentrationRule(decimal.RequireFromString("0.20")))
	return NewIngestionService(store, engine, testLogger(t))
}

func record(account, ticker string, qty int64, price string) dto.Record {
	return dto.Record{Date: tradeDay, Account: account, Ticker: ticker, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestIngestAppliesBasketConcentration(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	svc := newIngestion(t, store)

	result, err := svc.Ingest(ctx, "trades.csv", []dto.Record{
		record("ACC001", "AAPL", 2, "10"),
		record("ACC001", "MSFT", -8, "10"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TradesWritten)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "MSFT", result.Alerts[0].Trade.Ticker)
	assert.Equal(t, "Ticker MSFT is 80.0% of account ACC001 basket value", result.Alerts[0].Alert.Description)
}

func TestIngestTwiceConverges(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	svc := newIngestion(t, store)

	first := []dto.Record{record("ACC001", "AAPL", 100, "10"), record("ACC001", "MSFT", 10, "10")}
	_, err := svc.Ingest(ctx, "a.csv", first)
	require.NoError(t, err)

	second := []dto.Record{record("ACC001", "AAPL", 300, "11"), record("ACC001", "MSFT", 10, "10")}
	result, err := svc.Ingest(ctx, "a.csv", second)
	require.NoError(t, err)
	assert.Empty(t, result.Alerts, "AAPL was already alerted")

	trades, err := store.Trades().FindByDate(ctx, tradeDay)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, int64(300), trades[0].Quantity)
	assert.Equal(t, "11.0000", trades[0].Price.StringFixed(4))

	count, err := store.Alerts().CountByTrade(ctx, trades[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestEmpty(t *testing.T) {
	svc := newIngestion(t, repository.NewStore(testutil.NewDB(t)))
	_, err := svc.Ingest(context.Background(), "empty.csv", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

type failingStore struct {
	repository.Store
	failTicker string
}

func (f failingStore) Trades() repository.TradeRepository {
	return failingTrades{TradeRepository: f.Store.Trades(), failTicker: f.failTicker}
}

func (f failingStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(failingStore{Store: tx, failTicker: f.failTicker})
	})
}

type failingTrades struct {
	repository.TradeRepository
	failTicker string
}

func (f failingTrades) Upsert(ctx context.Context, trade *entity.Trade) error {
	if trade.Ticker == f.failTicker {
		return errors.New("disk full")
	}
	return f.TradeRepository.Upsert(ctx, trade)
}

func TestIngestRollsBackWholeFile(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	svc := newIngestion(t, failingStore{Store: store, failTicker: "MSFT"})

	_, err := svc.Ingest(ctx, "a.csv", []dto.Record{
		record("ACC001", "AAPL", 100, "10"),
		record("ACC001", "MSFT", 10, "10"),
	})
	require.Error(t, err)

	trades, err := store.Trades().FindByDate(ctx, tradeDay)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

// Poller

const (
	goodCSV = "TradeDate,AccountID,Ticker,Quantity,Price\n" +
		"2025-01-15,ACC001,AAPL,2,10\n" +
		"2025-01-15,ACC001,MSFT,8,10\n"
	goodPipe = "REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE\n" +
		"20250115|ACC002|GOOGL|10|2000.00\n"
)

type pollerFixture struct {
	root     string
	store    repository.Store
	notifier *recordingNotifier
	poller   *pollerService
}

func newPollerFixture(t *testing.T, wrap func(remotestore.Connector) remotestore.Connector) *pollerFixture {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "upload", "processed"), 0o755))

	cfg := &config.Config{}
	cfg.Ingest.Schedule = "@every 10s"
	cfg.Ingest.SourceDir = "/upload"
	cfg.Ingest.ArchiveDir = "/upload/processed"
	cfg.Ingest.AllowedExtensions = []string{".csv", ".txt", "dat"}

	var connector remotestore.Connector = remotestore.NewLocalConnector(remotestore.LocalConfig{Root: root})
	if wrap != nil {
		connector = wrap(connector)
	}

	store := repository.NewStore(testutil.NewDB(t))
	rec := &recordingNotifier{}
	p, err := NewPollerService(connector, normalizer.New(testLogger(t)), newIngestion(t, store), rec, nil, testLogger(t), cfg)
	require.NoError(t, err)

	return &pollerFixture{root: root, store: store, notifier: rec, poller: p.(*pollerService)}
}

func (f *pollerFixture) write(t *testing.T, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "upload", name), []byte(content), 0o644))
}

func (f *pollerFixture) exists(rel ...string) bool {
	_, err := os.Stat(filepath.Join(append([]string{f.root}, rel...)...))
	return err == nil
}

func TestRunCycleIsolatesBadFiles(t *testing.T) {
	ctx := context.Background()
	f := newPollerFixture(t, nil)
	f.write(t, "a_bad.csv", "This is just random text\nWith no headers\n")
	f.write(t, "b_good.csv", goodCSV)
	f.write(t, "c_good.DAT", goodPipe)
	f.write(t, "notes.md", goodCSV)

	report := f.poller.RunCycle(ctx)

	assert.Empty(t, report.Error)
	require.Len(t, report.Files, 3)
	assert.Equal(t, dto.FileStatusSkipped, report.Files[0].Status)
	assert.Equal(t, dto.StageNormalize, report.Files[0].Stage)
	assert.ElementsMatch(t, []string{"b_good.csv", "c_good.DAT"}, report.Archived())

	assert.True(t, f.exists("upload", "a_bad.csv"))
	assert.False(t, f.exists("upload", "b_good.csv"))
	assert.True(t, f.exists("upload", "processed", "b_good.csv"))
	assert.True(t, f.exists("upload", "processed", "c_good.DAT"))
	assert.True(t, f.exists("upload", "notes.md"))

	trades, err := f.store.Trades().FindByDate(ctx, tradeDay)
	require.NoError(t, err)
	assert.Len(t, trades, 3)

	// MSFT at 80% and GOOGL as the only ACC002 trade.
	assert.Len(t, f.notifier.alerts, 2)
}

func TestRunCycleArchiveFailureKeepsFileForRetry(t *testing.T) {
	ctx := context.Background()
	f := newPollerFixture(t, func(c remotestore.Connector) remotestore.Connector {
		return renameFailingConnector{Connector: c}
	})
	f.write(t, "trades.csv", goodCSV)

	report := f.poller.RunCycle(ctx)
	require.Len(t, report.Files, 1)
	assert.Equal(t, dto.FileStatusFailed, report.Files[0].Status)
	assert.Equal(t, dto.StageArchive, report.Files[0].Stage)
	assert.Equal(t, 2, report.Files[0].TradesWritten)
	assert.True(t, f.exists("upload", "trades.csv"))
	assert.Equal(t, []string{"trades.csv"}, f.notifier.critical)

	report = f.poller.RunCycle(ctx)
	require.Len(t, report.Files, 1)
	assert.Equal(t, 0, report.Files[0].AlertsCreated)

	trades, err := f.store.Trades().FindByDate(ctx, tradeDay)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
	assert.Len(t, f.notifier.alerts, 1)
}

func TestRunCycleReplacesExistingArchiveCopy(t *testing.T) {
	f := newPollerFixture(t, nil)
	f.write(t, "trades.csv", goodCSV)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "upload", "processed", "trades.csv"), []byte("old"), 0o644))

	report := f.poller.RunCycle(context.Background())

	assert.Equal(t, []string{"trades.csv"}, report.Archived())
	content, err := os.ReadFile(filepath.Join(f.root, "upload", "processed", "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, goodCSV, string(content))
}

func TestRunCycleConnectFailure(t *testing.T) {
	f := newPollerFixture(t, nil)
	require.NoError(t, os.RemoveAll(f.root))

	report := f.poller.RunCycle(context.Background())

	assert.Contains(t, report.Error, ErrConnect.Error())
	assert.Empty(t, report.Files)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunCycleStopsBetweenFilesOnShutdown(t *testing.T) {
	f := newPollerFixture(t, nil)
	f.write(t, "trades.csv", goodCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.poller.RunCycle(ctx)

	assert.Empty(t, report.Files)
	assert.True(t, f.exists("upload", "trades.csv"))
}

func TestRunCycleRecoversPanics(t *testing.T) {
	f := newPollerFixture(t, func(c remotestore.Connector) remotestore.Connector {
		return panickingConnector{Connector: c}
	})

	report := f.poller.RunCycle(context.Background())

	assert.Contains(t, report.Error, "panic")
}

func TestStartRunsSingleLoop(t *testing.T) {
	f := newPollerFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		f.poller.Start(ctx)
		close(done)
	}()
	require.Eventually(t, f.poller.running.Load, time.Second, 10*time.Millisecond)

	// A second start returns at once instead of running another loop.
	f.poller.Start(ctx)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	assert.False(t, f.poller.running.Load())
}

func TestParseSchedule(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, expr := range []string{"@every 10s", "10s"} {
		s, err := ParseSchedule(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, from.Add(10*time.Second), s.Next(from), expr)
	}

	s, err := ParseSchedule("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, from.Add(5*time.Minute), s.Next(from))

	_, err = ParseSchedule("every ten seconds")
	assert.Error(t, err)
	_, err = ParseSchedule("-1s")
	assert.Error(t, err)
}

type renameFailingConnector struct {
	remotestore.Connector
}

func (c renameFailingConnector) Connect(ctx context.Context) (remotestore.Session, error) {
	s, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return renameFailingSession{Session: s}, nil
}

type renameFailingSession struct {
	remotestore.Session
}

func (renameFailingSession) Rename(context.Context, string, string) error {
	return errors.New("permission denied")
}

type panickingConnector struct {
	remotestore.Connector
}

func (panickingConnector) Connect(context.Context) (remotestore.Session, error) {
	panic("connector exploded")
}

// Reports

func seedTrades(t *testing.T, store repository.Store) {
	ctx := context.Background()
	svc := newIngestion(t, store)
	_, err := svc.Ingest(ctx, "seed.csv", []dto.Record{
		record("ACC001", "AAPL", 2, "10"),
		record("ACC001", "MSFT", -8, "10"),
		record("ACC002", "GOOGL", 0, "100"),
	})
	require.NoError(t, err)
}

func TestReportService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	seedTrades(t, store)
	svc := NewReportService(store.Trades(), store.Alerts())

	t.Run("blotter", func(t *testing.T) {
		items, err := svc.Blotter(ctx, tradeDay)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "MSFT", items[1].Ticker)
		assert.Equal(t, int64(-8), items[1].Quantity)
		assert.Equal(t, 80.0, items[1].TotalValue)

		items, err = svc.Blotter(ctx, tradeDay.AddDate(-20, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("positions", func(t *testing.T) {
		positions, err := svc.Positions(ctx, tradeDay)
		require.NoError(t, err)
		assert.Equal(t, dto.PositionsResponse{
			"ACC001": {"AAPL": "20.0%", "MSFT": "80.0%"},
			"ACC002": {"GOOGL": "0.0%"},
		}, positions)
	})

	t.Run("alarms", func(t *testing.T) {
		alarms, err := svc.Alarms(ctx, tradeDay)
		require.NoError(t, err)
		require.Len(t, alarms, 1)
		assert.Equal(t, "ACC001", alarms[0].Account)
		assert.Equal(t, "MSFT", alarms[0].Ticker)
		assert.Equal(t, "Basket Concentration (>20%)", alarms[0].Rule)
		assert.True(t, alarms[0].Triggered)
	})
}

func TestHealthServiceWithoutRedis(t *testing.T) {
	svc := NewHealthService(repository.NewStore(testutil.NewDB(t)), nil)

	resp, ok := svc.Check(context.Background())

	assert.True(t, ok)
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "connected", resp.Database)
	assert.Empty(t, resp.Redis)
}
