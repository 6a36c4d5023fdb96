package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/config"
	"github.com/muurk/airscan/internal/discovery"
	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
	"github.com/muurk/airscan/internal/session"
	"github.com/muurk/airscan/internal/tui"
	"github.com/muurk/airscan/internal/ui"
)

// Command flags
var (
	discoverTimeout time.Duration

	scanDevice  string
	scanAddress string
	scanOutput  string
	scanWait    string
	scanDelay   time.Duration
	scanRetries int
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(scanCmd)
}

// signalContext returns a context canceled on Ctrl-C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return cfg, nil
}

func loadRegistry(ctx context.Context) (*registry.Registry, error) {
	store, err := registry.NewFileStore()
	if err != nil {
		return nil, err
	}
	reg := registry.New(store)
	if _, err := reg.Load(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := registry.NewFileStore()
	if err != nil {
		return err
	}

	sess := session.New(session.Options{Config: cfg, Store: store})
	if err := sess.Open(ctx); err != nil {
		return err
	}

	runErr := tui.Run(ctx, sess, tui.Options{
		OutputDir:       cfg.OutputDir,
		DiscoveryWindow: cfg.DiscoverTimeout,
	})

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := sess.Close(closeCtx); err != nil {
		logging.Warn("Failed to save devices", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// discoverCmd browses the network for scanners
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover scanners on the network",
	Long: `Listen for DNS-SD announcements and add new devices to the device list.

Devices already known keep their stored address. Use 'airscan devices' to
list everything that has been discovered so far.`,
	Example: `  # Listen for 10 seconds (default)
  airscan discover

  # Longer window for slow networks
  airscan discover --timeout 30s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "Discovery window (default from config.yaml, 10s)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout := cfg.DiscoverTimeout
	if discoverTimeout > 0 {
		timeout = discoverTimeout
	}

	reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.NewHeader("Discover", "airscan discover", map[string]string{
		"Service": cfg.ServiceType,
		"Timeout": timeout.String(),
	}).SetWidth(ui.GetTerminalWidth()).Render())
	fmt.Fprintln(out)

	listener := session.NewListener(cfg, reg, session.NewClient(cfg))
	found, err := listener.Discover(ctx, timeout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if err := reg.Save(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Fprintln(out, "  No new devices found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Troubleshooting:")
		fmt.Fprintln(out, "    - Ensure the scanner is powered on and on the same network")
		fmt.Fprintln(out, "    - Check that multicast DNS is not blocked by a firewall")
		fmt.Fprintln(out, "    - Try increasing --timeout for slower networks")
		fmt.Fprintln(out, "    - Use 'airscan scan --address <host:port>' to skip discovery")
		fmt.Fprintln(out)
	} else {
		fmt.Fprintf(out, "  Found %d new device(s)\n\n", len(found))
	}

	fmt.Fprintln(out, ui.RenderDeviceTable(reg.List()))
	return nil
}

// devicesCmd lists known devices
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List known devices",
	Long:  `List every device stored in devices.yaml, in discovery order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderDeviceTable(reg.List()))
		return nil
	},
}

// scanCmd scans one page from a device
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a document",
	Long: `Submit a scan job to an eSCL device, wait for the page and save it.

The device is chosen by name from the known device list, or given directly
by address. When neither is set and exactly one eSCL device is known, that
device is used.`,
	Example: `  # Scan from the only known eSCL scanner
  airscan scan

  # Scan from a named device into ~/Scans
  airscan scan --device HP_OfficeJet_Pro --output ~/Scans

  # Skip discovery and poll the scanner status instead of waiting 30s
  airscan scan --address 192.168.1.100:631 --wait poll

  # Slow scanner: wait longer and retry the download
  airscan scan --delay 60s --retries 3`,
	RunE: runScanCmd,
}

func init() {
	scanCmd.Flags().StringVar(&scanDevice, "device", "", "Device name from 'airscan devices'")
	scanCmd.Flags().StringVar(&scanAddress, "address", "", "Device address host[:port] (skips the device list)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Output directory (default from config.yaml, or the current directory)")
	scanCmd.Flags().StringVar(&scanWait, "wait", "", "Wait strategy: fixed or poll (default from config.yaml)")
	scanCmd.Flags().DurationVar(&scanDelay, "delay", 0, "Fixed wait before fetching the document (default from config.yaml, 30s)")
	scanCmd.Flags().IntVar(&scanRetries, "retries", -1, "Extra document fetch attempts (default from config.yaml)")
	scanCmd.MarkFlagsMutuallyExclusive("device", "address")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyScanFlags(cfg); err != nil {
		return err
	}

	dev, err := resolveScanDevice(ctx)
	if err != nil {
		return err
	}

	outputDir := cfg.OutputDir
	if scanOutput != "" {
		outputDir = scanOutput
	}

	params := map[string]string{"Wait": string(cfg.Wait.Strategy)}
	if cfg.Wait.Strategy == config.WaitFixed {
		params["Delay"] = cfg.Wait.Delay.String()
	}
	if outputDir != "" {
		params["Output"] = outputDir
	}

	runner := ui.NewScanRunner(ui.ScanRunnerConfig{
		Command: "airscan " + strings.Join(os.Args[1:], " "),
		Device:  dev,
		Params:  params,
		Output:  cmd.OutOrStdout(),
	})

	save := func(doc *escl.Document) (string, error) {
		return session.SaveDocument(outputDir, dev, doc, time.Now())
	}

	if _, err := runner.Run(ctx, session.NewClient(cfg), escl.NewScanJob(dev), save); err != nil {
		return err
	}
	return nil
}

// applyScanFlags overlays command line flags on the loaded preferences.
func applyScanFlags(cfg *config.Config) error {
	if scanWait != "" {
		cfg.Wait.Strategy = config.WaitStrategy(scanWait)
	}
	if scanDelay > 0 {
		cfg.Wait.Delay = scanDelay
	}
	if scanRetries >= 0 {
		cfg.FetchRetries = scanRetries
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan options: %w", err)
	}
	return nil
}

// resolveScanDevice picks the device from --address, --device or the
// device list.
func resolveScanDevice(ctx context.Context) (registry.DeviceRecord, error) {
	if scanAddress != "" {
		address := registry.ParseAddress(scanAddress, discovery.DefaultPort)
		return registry.DeviceRecord{Name: address, Kind: registry.KindESCL, Address: address}, nil
	}

	reg, err := loadRegistry(ctx)
	if err != nil {
		return registry.DeviceRecord{}, err
	}

	if scanDevice != "" {
		dev, ok := reg.Find(scanDevice)
		if !ok {
			return registry.DeviceRecord{}, fmt.Errorf("unknown device %q (run: airscan devices)", scanDevice)
		}
		return dev, nil
	}

	var candidates []registry.DeviceRecord
	for _, dev := range reg.List() {
		if dev.Kind.Scannable() {
			candidates = append(candidates, dev)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return registry.DeviceRecord{}, errors.New("no eSCL devices known (run: airscan discover, or pass --address)")
	default:
		return registry.DeviceRecord{}, fmt.Errorf("%d eSCL devices known, choose one with --device", len(candidates))
	}
}
