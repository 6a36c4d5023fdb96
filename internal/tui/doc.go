// Package tui implements the interactive airscan terminal interface.
//
// The interface is a single bubbletea screen wrapped in the application
// container (header with name and version, context help in the footer).
// It lists devices as they are discovered, lets the user start a scan on
// the selected device and shows the result of the last scan:
//
//	┌──────────────────────────────────────────────┐
//	│ AIRSCAN v1.0.0 github.com/muurk/airscan      │
//	├──────────────────────────────────────────────┤
//	│  Devices                                     │
//	│  ╭────────────────────────────────────────╮  │
//	│  │ → HP_OfficeJet_Pro                     │  │
//	│  │   192.168.1.100:631 • eSCL             │  │
//	│  │   Status: Ready                        │  │
//	│  ╰────────────────────────────────────────╯  │
//	├──────────────────────────────────────────────┤
//	│ enter scan • m manual address • q quit       │
//	└──────────────────────────────────────────────┘
//
// All session output arrives through Session.Events. The model keeps exactly
// one waitForEvent command outstanding, so events are applied in the order
// the session emitted them.
package tui
