// Package health checks that the mission host is ready to run.
//
// Checks return a Status. Missing scanning tools degrade the host; an
// unwritable workspace or an unreachable model endpoint makes it unhealthy.
// Combine folds several results into one, and Run executes a named set of
// checks for reporting:
//
//	report := health.Run(ctx,
//		health.Named("workspace", health.WritableDirCheck(ws)),
//		health.Named("tools", health.ToolsCheck("nmap", "curl", "gobuster")),
//	)
//	if report.Overall.IsUnhealthy() {
//		os.Exit(1)
//	}
package health
