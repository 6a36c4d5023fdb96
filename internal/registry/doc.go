// Package registry holds the set of known scanner devices.
//
// A Registry is an in-memory, mutex-guarded collection of DeviceRecord values
// keyed by (Name, Kind). Records are values: they are inserted once and never
// mutated in place. Re-announcing a known key is ignored, even when the
// address differs.
//
// Persistence goes through the Store interface. FileStore keeps a flat,
// ordered YAML list in the configuration directory:
//
//	version: 1
//	devices:
//	  - name: HP_OfficeJet_Pro
//	    kind: eSCL
//	    address: 192.168.1.100:631
//
// Loading a missing store yields an empty set.
package registry
