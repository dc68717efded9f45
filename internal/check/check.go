// Package check runs the fixed diagnostic queries against an open Snowflake
// session and reports whether the monitoring integration's telemetry views
// are readable by the current role.
package check

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

// Runner executes the diagnostic queries in a fixed order.
type Runner struct {
	db  *sql.DB
	out io.Writer
}

// NewRunner returns a Runner writing its progress to out.
func NewRunner(db *sql.DB, out io.Writer) *Runner {
	return &Runner{db: db, out: out}
}

// Identity runs the basic session query. A failure here is fatal to the
// whole run: without it nothing else is worth probing.
func (r *Runner) Identity(ctx context.Context) error {
	fmt.Fprintln(r.out, "\nTesting basic queries...")

	var version, user, role, warehouse sql.NullString
	row := r.db.QueryRowContext(ctx,
		"SELECT CURRENT_VERSION(), CURRENT_USER(), CURRENT_ROLE(), CURRENT_WAREHOUSE()")
	if err := row.Scan(&version, &user, &role, &warehouse); err != nil {
		return fmt.Errorf("basic queries failed: %w", err)
	}

	fmt.Fprintf(r.out, "Snowflake Version: %s\n", version.String)
	fmt.Fprintf(r.out, "Current User: %s\n", user.String)
	fmt.Fprintf(r.out, "Current Role: %s\n", role.String)
	fmt.Fprintf(r.out, "Current Warehouse: %s\n", warehouse.String)
	return nil
}

// MonitoringAccess probes the ACCOUNT_USAGE views the monitoring integration
// reads. Each query failure is caught and labelled; the remaining queries in
// the group still run, but any failure downgrades the group result.
func (r *Runner) MonitoringAccess(ctx context.Context) bool {
	fmt.Fprintln(r.out, "\nTesting monitoring access (Account Usage views)...")

	steps := []struct {
		label string
		run   func(context.Context) error
	}{
		{"query history", r.queryHistoryCount},
		{"warehouse performance metrics", r.warehouseLoad},
		{"storage metrics", r.storageUsage},
		{"warehouse credit usage", r.warehouseCredits},
		{"query execution metrics", r.queryStats},
	}

	ok := true
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			fmt.Fprintf(r.out, "%s %s check failed: %v\n", color.RedString("✗"), step.label, err)
			ok = false
		}
	}
	if !ok {
		fmt.Fprintln(r.out, "This may indicate insufficient permissions for the monitoring role")
		fmt.Fprintln(r.out, "Ensure the role has IMPORTED PRIVILEGES on the SNOWFLAKE database")
	}
	return ok
}

func (r *Runner) queryHistoryCount(ctx context.Context) error {
	fmt.Fprintln(r.out, "Testing query history access...")

	var count int64
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) AS query_count
		FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
		WHERE START_TIME >= DATEADD(hour, -24, CURRENT_TIMESTAMP())`)
	if err := row.Scan(&count); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Queries in last 24h: %d\n", count)
	return nil
}

func (r *Runner) warehouseLoad(ctx context.Context) error {
	fmt.Fprintln(r.out, "Testing warehouse performance metrics...")

	rows, err := r.db.QueryContext(ctx, `
		SELECT WAREHOUSE_NAME,
		       AVG(AVG_RUNNING) AS avg_cpu_usage,
		       COUNT(*) AS records
		FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_LOAD_HISTORY
		WHERE START_TIME >= DATEADD(hour, -24, CURRENT_TIMESTAMP())
		GROUP BY WAREHOUSE_NAME
		LIMIT 5`)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := 0
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for rows.Next() {
		var name string
		var avgLoad sql.NullFloat64
		var records int64
		if err := rows.Scan(&name, &avgLoad, &records); err != nil {
			return err
		}
		found++
		fmt.Fprintf(tw, "\t- %s:\tavg load %.2f\t%d records\n", name, avgLoad.Float64, records)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if found == 0 {
		fmt.Fprintln(r.out, "No warehouse performance data (may need time to accumulate)")
		return nil
	}
	fmt.Fprintf(r.out, "Found %d warehouses with performance data:\n", found)
	return tw.Flush()
}

func (r *Runner) storageUsage(ctx context.Context) error {
	fmt.Fprintln(r.out, "Testing storage metrics...")

	rows, err := r.db.QueryContext(ctx, `
		SELECT USAGE_DATE,
		       STORAGE_BYTES/1024/1024/1024 AS storage_gb,
		       STAGE_BYTES/1024/1024/1024 AS stage_gb,
		       FAILSAFE_BYTES/1024/1024/1024 AS failsafe_gb
		FROM SNOWFLAKE.ACCOUNT_USAGE.STORAGE_USAGE
		WHERE USAGE_DATE >= DATEADD(day, -7, CURRENT_DATE())
		ORDER BY USAGE_DATE DESC
		LIMIT 3`)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := 0
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for rows.Next() {
		var day time.Time
		var storageGB, stageGB, failsafeGB sql.NullFloat64
		if err := rows.Scan(&day, &storageGB, &stageGB, &failsafeGB); err != nil {
			return err
		}
		found++
		fmt.Fprintf(tw, "\t- %s:\t%.2fGB total\t%.2fGB stage\t%.2fGB failsafe\n",
			day.Format("2006-01-02"), storageGB.Float64, stageGB.Float64, failsafeGB.Float64)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if found > 0 {
		fmt.Fprintf(r.out, "Found storage data for %d days:\n", found)
		return tw.Flush()
	}
	return nil
}

func (r *Runner) warehouseCredits(ctx context.Context) error {
	fmt.Fprintln(r.out, "Testing warehouse credit usage...")

	rows, err := r.db.QueryContext(ctx, `
		SELECT WAREHOUSE_NAME,
		       SUM(CREDITS_USED) AS total_credits,
		       COUNT(*) AS records
		FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_METERING_HISTORY
		WHERE START_TIME >= DATEADD(day, -7, CURRENT_TIMESTAMP())
		GROUP BY WAREHOUSE_NAME
		ORDER BY total_credits DESC
		LIMIT 5`)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := 0
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for rows.Next() {
		var name string
		var credits sql.NullFloat64
		var records int64
		if err := rows.Scan(&name, &credits, &records); err != nil {
			return err
		}
		found++
		fmt.Fprintf(tw, "\t- %s:\t%.2f credits\t(%d records)\n", name, credits.Float64, records)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if found > 0 {
		fmt.Fprintf(r.out, "Found credit usage for %d warehouses:\n", found)
		return tw.Flush()
	}
	return nil
}

func (r *Runner) queryStats(ctx context.Context) error {
	fmt.Fprintln(r.out, "Testing query execution metrics...")

	rows, err := r.db.QueryContext(ctx, `
		SELECT QUERY_TYPE,
		       COUNT(*) AS query_count,
		       AVG(EXECUTION_TIME/1000) AS avg_exec_seconds,
		       MAX(EXECUTION_TIME/1000) AS max_exec_seconds
		FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
		WHERE START_TIME >= DATEADD(hour, -24, CURRENT_TIMESTAMP())
		AND EXECUTION_TIME IS NOT NULL
		GROUP BY QUERY_TYPE
		ORDER BY query_count DESC
		LIMIT 5`)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := 0
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for rows.Next() {
		var queryType string
		var count int64
		var avgSec, maxSec sql.NullFloat64
		if err := rows.Scan(&queryType, &count, &avgSec, &maxSec); err != nil {
			return err
		}
		found++
		fmt.Fprintf(tw, "\t- %s:\t%d queries\tavg %.2fs\tmax %.2fs\n",
			queryType, count, avgSec.Float64, maxSec.Float64)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if found > 0 {
		fmt.Fprintln(r.out, "Query performance data by type:")
		return tw.Flush()
	}
	return nil
}
