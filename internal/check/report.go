package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gerhard-ee/snowcheck/internal/config"
)

// Results collects the pass/fail outcome of every stage of the run.
type Results struct {
	ConfigOK       bool
	KeyOK          bool
	ConnectOK      bool
	BasicOK        bool
	MonitoringOK   bool
	RequirementsOK bool
}

// Passed reports whether every stage succeeded.
func (r Results) Passed() bool {
	return r.ConfigOK && r.KeyOK && r.ConnectOK && r.BasicOK &&
		r.MonitoringOK && r.RequirementsOK
}

// ExitCode maps the results onto the process exit status.
func (r Results) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

// Summarize prints the final report. On full success it includes the
// next-steps checklist for configuring the external monitoring integration.
func (r Results) Summarize(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, "TEST RESULTS SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))

	if r.Passed() {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "ALL TESTS PASSED")
		fmt.Fprintln(w, "Private key authentication working")
		fmt.Fprintln(w, "Private Link connection established")
		fmt.Fprintln(w, "All monitoring requirements satisfied")
		fmt.Fprintln(w, "Ready to configure the monitoring integration")

		fmt.Fprintln(w, "\nNEXT STEPS:")
		fmt.Fprintln(w, "1. Configure the Snowflake integration with:")
		fmt.Fprintf(w, "   - Account URL: %s\n", cfg.Account)
		fmt.Fprintf(w, "   - Username: %s\n", cfg.User)
		fmt.Fprintln(w, "   - Authentication: Private Key")
		fmt.Fprintf(w, "   - Role: %s\n", cfg.Role)
		fmt.Fprintf(w, "   - Warehouse: %s\n", cfg.Warehouse)
		fmt.Fprintln(w, "2. Enable all metric collection categories")
		fmt.Fprintln(w, "3. Create monitoring dashboard")
		return
	}

	color.New(color.FgRed, color.Bold).Fprintln(w, "SOME TESTS FAILED")
	fmt.Fprintln(w, "Check error messages above for troubleshooting")
}
