// Package escl implements the client side of the eSCL (AirScan) scan job
// protocol.
//
// A scan runs three phases against one device, strictly in order:
//
//  1. Submit: POST {base}/eSCL/ScanJobs with the scan settings; the device
//     answers 201 Created and a Location header naming the job.
//  2. Wait: give the device time to produce the page, either with a fixed
//     delay or by polling {base}/eSCL/ScannerStatus (see WaitStrategy).
//  3. Fetch: GET {location}/NextDocument; the body is the scanned image.
//
// Client.Scan runs the phases on the calling goroutine. Executor is the
// non-blocking entry point: it runs each job on its own goroutine, allows at
// most one job in flight per device, and delivers exactly one Outcome per
// accepted job on a caller-supplied channel.
//
// # Errors
//
// Every failure surfaces as a *ScanError whose Type classifies it:
//
//	doc, err := client.Scan(ctx, device)
//	if escl.IsJobSubmissionFailed(err) {
//	    fmt.Println(escl.StatusCode(err))
//	}
//	fmt.Println(escl.UserMessage(err))
//
// # Usage Example
//
//	outcomes := make(chan escl.Outcome, 4)
//	exec := escl.NewExecutor(escl.NewClient(), outcomes)
//	if _, err := exec.Start(ctx, device); err != nil {
//	    return err // device busy
//	}
//	outcome := <-outcomes
package escl
