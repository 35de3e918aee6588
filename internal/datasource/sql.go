package datasource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/psops/sentry/internal/faults"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/models"
)

// timeLayout matches DTTM_STAMP_SEC and BEGINDTTM column values.
const timeLayout = "2006-01-02 15:04:05"

// Config holds database connection settings.
type Config struct {
	// Driver is the database/sql driver name. The demo setup uses
	// "sqlite"; a production deployment points this at an Oracle driver.
	Driver string

	// DSN is the connection string.
	DSN string

	// CriticalThreshold is the error count above which the overall
	// status becomes Critical.
	CriticalThreshold int

	// QueryTimeout bounds each individual query.
	QueryTimeout time.Duration

	// SeedDemoData creates and populates mock PeopleSoft tables on
	// startup. Only meaningful for SQLite.
	SeedDemoData bool
}

// SQLSource reads the monitoring tables through database/sql.
type SQLSource struct {
	db     *sqlx.DB
	cfg    Config
	logger *logging.Logger
}

var _ Source = (*SQLSource)(nil)

// NewSQL opens the database and optionally seeds demo data. Connection
// failures surface as DataSourceUnavailable.
func NewSQL(ctx context.Context, cfg Config) (*SQLSource, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, faults.Wrap(faults.KindDataSourceUnavailable, err,
			"open %s database", cfg.Driver)
	}
	if cfg.Driver == "sqlite" {
		// A pooled in-memory SQLite database is per-connection; keep a
		// single connection so seeded tables stay visible.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, faults.Wrap(faults.KindDataSourceUnavailable, err,
			"ping %s database", cfg.Driver)
	}

	s := &SQLSource{
		db:     db,
		cfg:    cfg,
		logger: logging.GetLogger("datasource"),
	}

	if cfg.SeedDemoData {
		if err := s.seedDemoData(ctx); err != nil {
			db.Close()
			return nil, err
		}
		s.logger.Info("Demo PeopleSoft data seeded")
	}

	return s, nil
}

func (s *SQLSource) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

// queryFault classifies a failed query. A connection level failure means
// the source is unreachable, not that the statement was bad.
func queryFault(err error, msg string) error {
	kind := faults.KindDataSourceQueryError
	if connectionLost(err) {
		kind = faults.KindDataSourceUnavailable
	}
	return faults.Wrap(kind, err, "%s", msg)
}

func connectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// database/sql does not export its closed-pool sentinel.
	return strings.Contains(err.Error(), "database is closed")
}

// FetchIBErrors returns PS_MSG_INST rows with MSG_STATUS='7' inside the
// lookback window, newest first.
func (s *SQLSource) FetchIBErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	cutoff := time.Now().UTC().Add(-lookback).Format(timeLayout)

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT IB_TRANSACTIONID, MESSAGE_NAME, QUEUE_NAME,
		       PUBNODE, SUBNODE, DTTM_STAMP_SEC, ERROR_MSG
		FROM   PS_MSG_INST
		WHERE  MSG_STATUS = '7'
		  AND  DTTM_STAMP_SEC >= ?
		ORDER  BY DTTM_STAMP_SEC DESC`, cutoff)
	if err != nil {
		return nil, queryFault(err, "query PS_MSG_INST")
	}
	defer rows.Close()

	var records []models.ErrorRecord
	for rows.Next() {
		var (
			txnID, msgName, queue, pubNode, subNode, stamp string
			errMsg                                         sql.NullString
		)
		if err := rows.Scan(&txnID, &msgName, &queue, &pubNode, &subNode, &stamp, &errMsg); err != nil {
			return nil, faults.Wrap(faults.KindDataSourceQueryError, err, "scan PS_MSG_INST row")
		}
		records = append(records, models.ErrorRecord{
			SourceKind:  models.SourceIntegrationBroker,
			Identifier:  txnID,
			MessageText: errMsg.String,
			OccurredAt:  parseStamp(stamp),
			StatusCode:  "7",
			Detail: map[string]string{
				"message_name": msgName,
				"queue":        queue,
				"pub_node":     pubNode,
				"sub_node":     subNode,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.KindDataSourceQueryError, err, "iterate PS_MSG_INST rows")
	}
	return records, nil
}

// FetchProcessErrors returns PSPRCSRQST rows with RUNSTATUS='14' inside
// the lookback window, newest first.
func (s *SQLSource) FetchProcessErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	cutoff := time.Now().UTC().Add(-lookback).Format(timeLayout)

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT PRCSINSTANCE, PRCSTYPE, PRCSNAME, OPRID,
		       RUNCNTLID, BEGINDTTM, SERVERNM, MESSAGE_TEXT
		FROM   PSPRCSRQST
		WHERE  RUNSTATUS = '14'
		  AND  BEGINDTTM >= ?
		ORDER  BY BEGINDTTM DESC`, cutoff)
	if err != nil {
		return nil, queryFault(err, "query PSPRCSRQST")
	}
	defer rows.Close()

	var records []models.ErrorRecord
	for rows.Next() {
		var (
			instance                                       int64
			prcsType, prcsName, oprID, runCntl, begin, srv string
			msgText                                        sql.NullString
		)
		if err := rows.Scan(&instance, &prcsType, &prcsName, &oprID, &runCntl, &begin, &srv, &msgText); err != nil {
			return nil, faults.Wrap(faults.KindDataSourceQueryError, err, "scan PSPRCSRQST row")
		}
		records = append(records, models.ErrorRecord{
			SourceKind:  models.SourceProcess,
			Identifier:  strconv.FormatInt(instance, 10),
			MessageText: msgText.String,
			OccurredAt:  parseStamp(begin),
			StatusCode:  "14",
			Detail: map[string]string{
				"process_type": prcsType,
				"process_name": prcsName,
				"operator":     oprID,
				"run_control":  runCntl,
				"server":       srv,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.KindDataSourceQueryError, err, "iterate PSPRCSRQST rows")
	}
	return records, nil
}

// FetchSummary counts messages and processes by state across both
// tables without a time window.
func (s *SQLSource) FetchSummary(ctx context.Context) (models.SystemSummary, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var summary models.SystemSummary
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM PS_MSG_INST`, &summary.IBTotalMessages},
		{`SELECT COUNT(*) FROM PS_MSG_INST WHERE MSG_STATUS = '7'`, &summary.IBErrorCount},
		{`SELECT COUNT(*) FROM PSPRCSRQST`, &summary.ProcessTotal},
		{`SELECT COUNT(*) FROM PSPRCSRQST WHERE RUNSTATUS = '14'`, &summary.ProcessErrorCount},
		{`SELECT COUNT(*) FROM PSPRCSRQST WHERE RUNSTATUS = '7'`, &summary.ProcessRunningCount},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return models.SystemSummary{}, queryFault(err, "count query failed")
		}
	}

	summary.OverallStatus = models.DeriveStatus(
		summary.IBErrorCount, summary.ProcessErrorCount, s.cfg.CriticalThreshold)
	return summary, nil
}

// Ping verifies the connection is usable.
func (s *SQLSource) Ping(ctx context.Context) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return faults.Wrap(faults.KindDataSourceUnavailable, err, "ping database")
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Start implements the lifecycle.Component interface. The pool is opened
// at construction; startup only verifies connectivity.
func (s *SQLSource) Start(ctx context.Context) error {
	return s.Ping(ctx)
}

// Stop implements the lifecycle.Component interface.
func (s *SQLSource) Stop(ctx context.Context) error {
	return s.Close()
}

// Name implements the lifecycle.Component interface.
func (s *SQLSource) Name() string {
	return "Data Source"
}

func parseStamp(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
