// Package ui renders styled terminal output for the airscan CLI.
//
// Unlike the interactive TUI, these components follow a "run once and exit"
// pattern: commands print a header, report scan phases as they happen and
// finish with a result box.
//
//   - Header: command banner showing operation name and parameters
//   - Steps: the scan phase list, updated as the job advances
//   - Result: success/failure boxes with details and troubleshooting tips
//   - DeviceTable: the known device list
//
// ScanRunner ties these together for the scan command:
//
//	runner := ui.NewScanRunner(ui.ScanRunnerConfig{
//	    Command: "airscan scan",
//	    Device:  dev,
//	})
//	doc, err := runner.Run(ctx, client, escl.NewScanJob(dev), save)
//
// Logging is controlled through AIRSCAN_LOG_LEVEL. When unset, zap is silent
// so that only the curated UI output is shown.
package ui
