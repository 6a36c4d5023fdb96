// Package logging provides structured logging for airscan.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used by the discovery listener and the eSCL scan client.
//
// # Log Levels
//
//   - Debug: Detailed debugging info (payload dumps, dropped announcements)
//   - Info: Normal operations (devices discovered, scan phases, HTTP exchanges)
//   - Warn: Non-fatal issues (fetch retries, status endpoint missing)
//   - Error: Failed scans, registry persistence failures
//
// # Structured Logging
//
//	logging.Info("Device discovered",
//	    zap.String("name", "HP_OfficeJet_Pro"),
//	    zap.String("address", "192.168.1.100:631"),
//	)
//
// Domain helpers keep field names consistent across packages:
//
//	logging.LogDiscovery("added", name, address)
//	logging.LogScanPhase(jobID, device, "submitting")
//	logging.LogHTTPRequest(method, url)
//	logging.LogHTTPResponse(method, url, statusCode)
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through the
// AIRSCAN_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so it never interleaves with command output or the
// terminal UI frame written to stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
