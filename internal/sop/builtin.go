package sop

// BuiltinProcedures returns the compiled-in SOP library covering the error
// classes Production Support sees most often. Declaration order matters:
// Lookup tries patterns in this order and the first match wins.
func BuiltinProcedures() []Procedure {
	return []Procedure{
		{
			Key:   "ora-01555",
			Title: "ORA-01555: Snapshot Too Old",
			RootCause: "The Oracle rollback/undo segment was too small or the UNDO_RETENTION " +
				"parameter is too low, causing long-running queries to lose read consistency.",
			TriggerPatterns: []string{"ora-01555", "snapshot too old"},
			Symptoms: []string{
				"PSPRCSRQST shows RUNSTATUS=14 (Error) for Application Engine jobs",
				"Message log contains 'ORA-01555 snapshot too old'",
				"Typically seen during month-end batch runs or large data loads",
			},
			RemediationSteps: []string{
				"Verify UNDO_RETENTION (recommended >= 3600 s): SELECT VALUE FROM V$PARAMETER WHERE NAME='undo_retention';",
				"Increase UNDO_RETENTION: ALTER SYSTEM SET UNDO_RETENTION=7200 SCOPE=BOTH;",
				"Check undo tablespace size and add a datafile if < 10 GB free: ALTER TABLESPACE UNDOTBS1 ADD DATAFILE SIZE 4G AUTOEXTEND ON;",
				"Re-run the failed process from Process Monitor (Actions -> Restart).",
				"Schedule large batch jobs during off-peak hours to reduce contention.",
			},
			EscalateTo: "DBA Team - Ticket Queue: ORA-DB-PERF",
			Tags:       []string{"oracle", "undo", "ae", "batch"},
		},
		{
			Key:   "ib-connection-refused",
			Title: "IB Error: Target Node Connection Refused",
			RootCause: "The Integration Broker cannot establish a TCP/HTTP connection to the " +
				"target (subscriber) node. The remote endpoint is down, firewalled, or the " +
				"Gateway URL is mis-configured.",
			TriggerPatterns: []string{"connection refused"},
			Symptoms: []string{
				"PS_MSG_INST shows MSG_STATUS=7 with 'Connection refused' in ERROR_MSG",
				"Multiple messages queued for the same sub-node",
				"IB Monitor shows node ping failures",
			},
			RemediationSteps: []string{
				"Ping / curl the target node URL from the PeopleSoft App Server: curl -v https://<target-node-url>/PSIGW/PeopleSoftServiceListeningConnector",
				"Check PeopleSoft Gateway URL (PeopleTools -> Integration Broker -> Gateways).",
				"Verify the target node is active (Node Definitions -> Status = Active).",
				"Check firewall rules between source and target VLAN.",
				"Restart the Integration Gateway (weblogic managed server) if needed.",
				"Use IB Monitor -> Service Operations -> Re-submit errored transactions.",
			},
			EscalateTo: "Middleware / Integration Team - Queue: IB-CONNECT",
			Tags:       []string{"ib", "integration broker", "node", "connectivity"},
		},
		{
			Key:   "ib-timeout",
			Title: "IB Error: Target Node Timeout",
			RootCause: "The subscriber node did not respond within the configured timeout window. " +
				"Causes include slow target system, large payload, or network latency.",
			TriggerPatterns: []string{"timeout", "no response"},
			Symptoms: []string{
				"ERROR_MSG contains 'Timeout' or 'No response'",
				"MSG_STATUS=7 on PS_MSG_INST rows",
				"Sporadic failures rather than complete outage",
			},
			RemediationSteps: []string{
				"Check target node response time - run a test ping from IB Monitor.",
				"Increase Gateway timeout (Gateway Properties -> Connector timeout).",
				"Analyze payload size - enable chunking for messages > 5 MB.",
				"Review target system performance metrics during the failure window.",
				"Re-submit failed messages via IB Monitor after root cause is resolved.",
			},
			EscalateTo: "Integration Team - Queue: IB-PERF",
			Tags:       []string{"ib", "timeout", "performance"},
		},
		{
			Key:   "pychkusa-company-not-found",
			Title: "Paycheck (PYCHKUSA) - Company Not Found",
			RootCause: "The Pay Run ID references a Company that does not exist or is inactive " +
				"in PS_COMPANY_TBL, or the Run Control was set up with incorrect parameters.",
			TriggerPatterns: []string{"company not found", "pychkusa"},
			Symptoms: []string{
				"PSPRCSRQST RUNSTATUS=14 for process PYCHKUSA",
				"Message: 'Company not found for Pay Run ID'",
				"Payroll administrators unable to confirm paycheck printing",
			},
			RemediationSteps: []string{
				"Verify the Company code in the Run Control: SELECT * FROM PS_RC_PAY WHERE OPRID=:oprid AND RUN_CNTL_ID=:runcntl;",
				"Confirm Company is active: SELECT EFFDT, EFF_STATUS FROM PS_COMPANY_TBL WHERE COMPANY=:company ORDER BY EFFDT DESC;",
				"If Company is inactive, re-activate via Set Up HCM -> Foundation Tables -> Company.",
				"Correct the Run Control and re-run PYCHKUSA from Process Monitor.",
				"Notify Payroll Manager before re-run to confirm pay cycle details.",
			},
			EscalateTo: "Payroll / HCM Functional Team - Queue: PAY-CONFIG",
			Tags:       []string{"payroll", "pychkusa", "company", "hcm"},
		},
		{
			Key:       "generic-process-error",
			Title:     "Generic Process Monitor Error",
			RootCause: "Process ended abnormally - review message log for specific ORA- or ABN: codes.",
			Symptoms: []string{
				"RUNSTATUS=14 in PSPRCSRQST",
				"No specific error pattern matched",
			},
			RemediationSteps: []string{
				"Open Process Monitor, click on the failed Process Instance.",
				"Click 'Message Log' to review detailed error output.",
				"Check the server log: $PS_LOGDIR/<server>/<process>_<instance>.log",
				"Search the internal knowledge base for the specific error code.",
				"Escalate to Technical Support with the log file attached.",
			},
			EscalateTo: "PeopleSoft Technical Support - Queue: PSFT-GENERAL",
			Tags:       []string{"generic", "process"},
			Fallback:   true,
		},
	}
}

// BuiltinCatalog builds the compiled-in catalog. The library above is
// maintained by hand, so a validation failure here is a programming error.
func BuiltinCatalog() (*Catalog, error) {
	return NewCatalog(BuiltinProcedures())
}
