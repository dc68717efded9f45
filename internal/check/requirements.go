package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fatih/color"
)

// Probe is one named requirement check: a row-count query against a specific
// usage view over a specific lookback window.
type Probe struct {
	ID    string
	Name  string
	Query string
}

// Probes lists the monitoring integration's data requirements in the order
// they are verified.
var Probes = []Probe{
	{
		ID:   "1.A",
		Name: "CPU & Memory Utilization",
		Query: `
			SELECT 'CPU_Memory_Test' AS test_name, COUNT(*) AS available_records
			FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_LOAD_HISTORY
			WHERE START_TIME >= DATEADD(day, -1, CURRENT_TIMESTAMP())`,
	},
	{
		ID:   "1.B",
		Name: "Storage Utilization",
		Query: `
			SELECT 'Storage_Test' AS test_name, COUNT(*) AS available_records
			FROM SNOWFLAKE.ACCOUNT_USAGE.STORAGE_USAGE
			WHERE USAGE_DATE >= DATEADD(day, -30, CURRENT_DATE())`,
	},
	{
		ID:   "1.C",
		Name: "Query Execution Time",
		Query: `
			SELECT 'Query_Performance_Test' AS test_name, COUNT(*) AS available_records
			FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
			WHERE START_TIME >= DATEADD(day, -1, CURRENT_TIMESTAMP())`,
	},
	{
		ID:   "2.A",
		Name: "Data Loading Rate",
		Query: `
			SELECT 'Data_Loading_Test' AS test_name, COUNT(*) AS available_records
			FROM SNOWFLAKE.ACCOUNT_USAGE.COPY_HISTORY
			WHERE LAST_LOAD_TIME >= DATEADD(day, -7, CURRENT_TIMESTAMP())`,
	},
	{
		ID:   "2.B",
		Name: "Warehouse Usage",
		Query: `
			SELECT 'Warehouse_Usage_Test' AS test_name, COUNT(*) AS available_records
			FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_METERING_HISTORY
			WHERE START_TIME >= DATEADD(day, -7, CURRENT_TIMESTAMP())`,
	},
}

// Requirements runs every probe. A failing probe is reported under its
// requirement ID and fails the group, but never stops its siblings.
func (r *Runner) Requirements(ctx context.Context) bool {
	fmt.Fprintln(r.out, "\nTesting specific monitoring requirements...")

	ok := true
	for _, probe := range Probes {
		var testName string
		var records int64
		row := r.db.QueryRowContext(ctx, probe.Query)
		if err := row.Scan(&testName, &records); err != nil && err != sql.ErrNoRows {
			fmt.Fprintf(r.out, "%s %s - %s: failed - %v\n",
				color.RedString("✗"), probe.ID, probe.Name, err)
			ok = false
			continue
		}
		fmt.Fprintf(r.out, "%s %s - %s: %d records available\n",
			color.GreenString("✓"), probe.ID, probe.Name, records)
	}
	return ok
}
