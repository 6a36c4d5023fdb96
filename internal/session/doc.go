// Package session ties discovery, the device registry and scan execution
// together for a front end.
//
// A Session loads the persisted device list, keeps a discovery listener
// running in the background and starts scans without blocking the caller.
// Everything that happens asynchronously (new devices, finished scans) is
// delivered on a single event channel, in the order it happened, so a front
// end can apply results from one goroutine without further locking.
//
//	s := session.New(session.Options{Config: cfg, Store: store})
//	if err := s.Open(ctx); err != nil { ... }
//	defer s.Close(context.Background())
//
//	for ev := range s.Events() {
//	    switch ev := ev.(type) {
//	    case session.DeviceDiscovered:
//	    case session.ScanFinished:
//	    }
//	}
package session
