// Package config provides user configuration management for airscan.
//
// Preferences live in a YAML file in the platform configuration directory,
// next to the persisted device list:
//   - Linux: $XDG_CONFIG_HOME/airscan or $HOME/.config/airscan
//   - macOS: $HOME/.config/airscan
//   - Windows: %LOCALAPPDATA%\airscan
//
// The AIRSCAN_CONFIG_DIR environment variable overrides the directory.
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Wait.Strategy = config.WaitPoll
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// A missing file is not an error; Load returns Default().
package config
