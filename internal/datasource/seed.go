package datasource

import (
	"context"
	"time"

	"github.com/psops/sentry/internal/faults"
)

// seedDemoData creates and populates mock PeopleSoft tables so the
// service runs without a real Oracle connection. Timestamps are placed
// relative to now so the default 24-hour lookback always catches them.
func (s *SQLSource) seedDemoData(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS PS_MSG_INST (
			IB_TRANSACTIONID TEXT PRIMARY KEY,
			MESSAGE_NAME     TEXT,
			MSG_STATUS       TEXT,
			QUEUE_NAME       TEXT,
			PUBNODE          TEXT,
			SUBNODE          TEXT,
			DTTM_STAMP_SEC   TEXT,
			ERROR_MSG        TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS PSPRCSRQST (
			PRCSINSTANCE  INTEGER PRIMARY KEY,
			PRCSTYPE      TEXT,
			PRCSNAME      TEXT,
			RUNSTATUS     TEXT,
			OPRID         TEXT,
			RUNCNTLID     TEXT,
			BEGINDTTM     TEXT,
			ENDDTTM       TEXT,
			OUTDESTFORMAT TEXT,
			SERVERNM      TEXT,
			MESSAGE_TEXT  TEXT
		)`,
		`DELETE FROM PS_MSG_INST`,
		`DELETE FROM PSPRCSRQST`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return faults.Wrap(faults.KindDataSourceQueryError, err, "create demo schema")
		}
	}

	now := time.Now().UTC()
	at := func(minutesAgo int) string {
		return now.Add(-time.Duration(minutesAgo) * time.Minute).Format(timeLayout)
	}

	ibRows := [][]any{
		{"TXN-1001", "VOUCHER_BUILD", "0", "VOUCHER_Q", "PSFT_SRC", "ERP_DEST", at(120), nil},
		{"TXN-1002", "PO_RECEIPT_SYNC", "7", "PO_Q", "PSFT_SRC", "WMS_DEST", at(105),
			"SOAP Fault: Connection refused - target node WMS_DEST unreachable"},
		{"TXN-1003", "EMPLOYEE_SYNC", "1", "HR_Q", "PSFT_SRC", "HCM_DEST", at(90), nil},
		{"TXN-1004", "GL_JOURNAL_IMPORT", "7", "FIN_Q", "PSFT_SRC", "GL_DEST", at(75),
			"Timeout: No response from GL_DEST after 30 s"},
		{"TXN-1005", "CUSTOMER_UPDATE", "0", "CRM_Q", "PSFT_SRC", "CRM_DEST", at(60), nil},
	}
	for _, r := range ibRows {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO PS_MSG_INST
			  (IB_TRANSACTIONID, MESSAGE_NAME, MSG_STATUS, QUEUE_NAME,
			   PUBNODE, SUBNODE, DTTM_STAMP_SEC, ERROR_MSG)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r...); err != nil {
			return faults.Wrap(faults.KindDataSourceQueryError, err, "seed PS_MSG_INST")
		}
	}

	prcsRows := [][]any{
		{5001, "SQR Report", "GLXLEDGR", "9", "PS_ADMIN", "GL_RPT_001", at(240), at(225), "PDF", "PSNT", nil},
		{5002, "Application Engine", "AEMINILOAD", "14", "BATCH_USR", "MINI_LOAD", at(220), at(215), "LOG", "PSUNX",
			"SQL Error: ORA-01555 Snapshot too old - rollback segment too small"},
		{5003, "COBOL", "PAYCHECK", "7", "PAYROLL", "PAY_RUN_01", at(180), nil, "LOG", "PSUNX", nil},
		{5004, "SQR Report", "PYCHKUSA", "14", "PAYROLL", "PAY_CHK_02", at(170), at(168), "PDF", "PSUNX",
			"ABN: PYCHKUSA - Company not found for Pay Run ID PAY_CHK_02"},
		{5005, "Application Engine", "FSPCYCMTH", "9", "FIN_ADM", "FIN_CYC_03", at(300), at(255), "LOG", "PSNT", nil},
	}
	for _, r := range prcsRows {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO PSPRCSRQST
			  (PRCSINSTANCE, PRCSTYPE, PRCSNAME, RUNSTATUS, OPRID, RUNCNTLID,
			   BEGINDTTM, ENDDTTM, OUTDESTFORMAT, SERVERNM, MESSAGE_TEXT)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r...); err != nil {
			return faults.Wrap(faults.KindDataSourceQueryError, err, "seed PSPRCSRQST")
		}
	}

	return nil
}
