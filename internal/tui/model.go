package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/muurk/airscan/internal/discovery"
	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
	"github.com/muurk/airscan/internal/session"
	"github.com/muurk/airscan/internal/ui"
)

// Backend is the part of a session the interface drives.
// *session.Session satisfies it.
type Backend interface {
	Events() <-chan session.Event
	Devices() []registry.DeviceRecord
	ScanDevice(ctx context.Context, dev registry.DeviceRecord) (uuid.UUID, error)
}

// Options configures the model.
type Options struct {
	OutputDir       string        // Where finished scans are written
	DiscoveryWindow time.Duration // How long the searching screen is shown when no device is known
}

// Messages for async operations
type eventMsg struct {
	event session.Event
}

type eventsClosedMsg struct{}

type scanRejectedMsg struct {
	device registry.DeviceRecord
	err    error
}

type scanSavedMsg struct {
	outcome escl.Outcome
	path    string
	err     error
}

// scanResult is the panel shown for the most recent scan.
type scanResult struct {
	device  registry.DeviceRecord
	path    string
	size    string
	elapsed time.Duration
	err     error
}

// Model is the device screen.
type Model struct {
	backend   Backend
	ctx       context.Context
	outputDir string
	window    time.Duration
	now       func() time.Time

	DeviceList   list.Model
	ManualMode   bool
	AddressInput textinput.Model

	Width        int
	Height       int
	StartTime    time.Time
	Spinner      spinner.Model
	ProgressBar  progress.Model
	Help         help.Model
	Keys         deviceKeyMap
	ManualKeys   manualKeyMap
	Result       *scanResult
	DiscoveryErr error
	Closed       bool
}

// NewModel creates the device screen, seeded with the devices the backend
// already knows.
func NewModel(ctx context.Context, backend Backend, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "192.168.1.100:631"
	input.CharLimit = 64
	input.Width = 30

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	known := backend.Devices()
	items := make([]list.Item, len(known))
	for i, dev := range known {
		items[i] = deviceItem{device: dev}
	}

	deviceList := list.New(items, deviceDelegate{width: MinTerminalWidth}, MinTerminalWidth-4, 20)
	deviceList.Title = "Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.SetShowHelp(false)
	deviceList.Styles.Title = TitleStyle

	window := opts.DiscoveryWindow
	if window <= 0 {
		window = discovery.DefaultScanTimeout
	}

	return Model{
		backend:      backend,
		ctx:          ctx,
		outputDir:    opts.OutputDir,
		window:       window,
		now:          time.Now,
		DeviceList:   deviceList,
		AddressInput: input,
		StartTime:    time.Now(),
		Spinner:      s,
		ProgressBar:  bar,
		Help:         help.New(),
		Keys:         newDeviceKeyMap(),
		ManualKeys:   newManualKeyMap(),
	}
}

// Init starts listening for session events
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.backend.Events()),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(max(msg.Height-14, 5))
		return m, nil

	case eventMsg:
		cmd := m.applyEvent(msg.event)
		return m, tea.Batch(cmd, waitForEvent(m.backend.Events()))

	case eventsClosedMsg:
		m.Closed = true
		return m, nil

	case scanRejectedMsg:
		m.setScanning(msg.device.Key(), false)
		m.Result = &scanResult{device: msg.device, err: msg.err}
		return m, nil

	case scanSavedMsg:
		m.Result = newScanResult(msg.outcome, msg.path, msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyEvent folds one session event into the model.
func (m *Model) applyEvent(ev session.Event) tea.Cmd {
	switch ev := ev.(type) {
	case session.DeviceDiscovered:
		if m.indexOf(ev.Device.Key()) >= 0 {
			return nil
		}
		return m.DeviceList.InsertItem(len(m.DeviceList.Items()), deviceItem{device: ev.Device})

	case session.ScanFinished:
		m.setScanning(ev.Outcome.Device.Key(), false)
		if !ev.Outcome.OK() {
			m.Result = newScanResult(ev.Outcome, "", nil)
			return nil
		}
		return saveScan(m.outputDir, ev.Outcome, m.now())

	case session.DiscoveryFailed:
		m.DiscoveryErr = ev.Err
	}
	return nil
}

// updateNormalMode handles keyboard input on the device list
func (m Model) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		return m, nil

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.AddressInput.SetValue("")
		return m, m.AddressInput.Focus()

	case key.Matches(msg, m.Keys.Scan):
		it, ok := m.DeviceList.SelectedItem().(deviceItem)
		if !ok || it.scanning {
			return m, nil
		}
		m.setScanning(it.device.Key(), true)
		return m, startScan(m.ctx, m.backend, it.device)
	}

	// Let the list handle up/down navigation
	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual address entry mode
func (m Model) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.AddressInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		value := strings.TrimSpace(m.AddressInput.Value())
		if value == "" {
			return m, nil
		}
		m.ManualMode = false
		m.AddressInput.Blur()

		dev := manualDevice(value)
		idx := m.indexOf(dev.Key())
		var cmds []tea.Cmd
		if idx < 0 {
			cmds = append(cmds, m.DeviceList.InsertItem(0, deviceItem{device: dev, manual: true}))
			idx = 0
		}
		m.DeviceList.Select(idx)

		if it, ok := m.DeviceList.Items()[idx].(deviceItem); ok && it.scanning {
			return m, tea.Batch(cmds...)
		}
		m.setScanning(dev.Key(), true)
		cmds = append(cmds, startScan(m.ctx, m.backend, dev))
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.AddressInput, cmd = m.AddressInput.Update(msg)
	return m, cmd
}

func (m *Model) indexOf(k registry.Key) int {
	for i, item := range m.DeviceList.Items() {
		if it, ok := item.(deviceItem); ok && it.device.Key() == k {
			return i
		}
	}
	return -1
}

func (m *Model) setScanning(k registry.Key, scanning bool) {
	idx := m.indexOf(k)
	if idx < 0 {
		return
	}
	it := m.DeviceList.Items()[idx].(deviceItem)
	it.scanning = scanning
	m.DeviceList.SetItem(idx, it)
}

// Devices returns the devices currently listed.
func (m Model) Devices() []registry.DeviceRecord {
	items := m.DeviceList.Items()
	devices := make([]registry.DeviceRecord, 0, len(items))
	for _, item := range items {
		if it, ok := item.(deviceItem); ok {
			devices = append(devices, it.device)
		}
	}
	return devices
}

// View renders the device screen
func (m Model) View() string {
	var content string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
	case m.searching():
		content = m.renderSearching()
	default:
		content = m.renderDevices()
	}

	var helpText string
	if m.ManualMode {
		helpText = m.Help.View(m.ManualKeys)
	} else {
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m Model) searching() bool {
	return len(m.DeviceList.Items()) == 0 &&
		m.DiscoveryErr == nil &&
		!m.Closed &&
		m.now().Sub(m.StartTime) < m.window
}

// renderSearching shows the initial discovery window
func (m Model) renderSearching() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	elapsed := m.now().Sub(m.StartTime)
	percent := float64(elapsed) / float64(m.window)
	if percent > 1 {
		percent = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR SCANNERS", m.Spinner.View())),
		"",
		RenderSubtitle("Listening for AirScan announcements on the local network..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		RenderSubtitle(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderDevices renders the device list, discovery problems and the last result
func (m Model) renderDevices() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.DiscoveryErr != nil {
		b.WriteString(RenderError(fmt.Sprintf("Discovery stopped: %v", m.DiscoveryErr)))
		b.WriteString("\n\n")
	}

	if len(m.DeviceList.Items()) == 0 {
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render("⚠ No scanners found on your network"))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Ensure the scanner is powered on and on the same network\n")
		b.WriteString("    • Check that multicast DNS is not blocked by a firewall\n")
		b.WriteString("    • Press 'm' to enter the scanner address manually\n")
	} else {
		b.WriteString(m.DeviceList.View())
	}

	if panel := m.renderResult(); panel != "" {
		b.WriteString("\n\n")
		b.WriteString(panel)
	}

	return b.String()
}

func (m Model) renderResult() string {
	r := m.Result
	if r == nil {
		return ""
	}

	if r.err == nil {
		text := fmt.Sprintf("Scanned %s in %s\n  %s saved to %s",
			r.device.Name, r.elapsed.Round(time.Millisecond), r.size, r.path)
		return RenderSuccess(text)
	}

	var b strings.Builder
	b.WriteString(RenderError(fmt.Sprintf("Scan of %s failed: %s", r.device.Name, escl.UserMessage(r.err))))
	if tips := ui.Troubleshooting(r.err); len(tips) > 0 {
		b.WriteString("\n\n  Troubleshooting:\n")
		for _, tip := range tips {
			b.WriteString(HintStyle.Render("    • " + tip))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderManualEntry renders the manual address entry dialog
func (m Model) renderManualEntry() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Enter the scanner address (host or host:port)"))
	b.WriteString("\n\n")
	b.WriteString("  Address: ")
	b.WriteString(m.AddressInput.View())
	b.WriteString("\n\n")

	return b.String()
}

func newScanResult(outcome escl.Outcome, path string, saveErr error) *scanResult {
	r := &scanResult{
		device:  outcome.Device,
		path:    path,
		elapsed: outcome.Elapsed,
		err:     outcome.Err,
	}
	if r.err == nil && saveErr != nil {
		r.err = saveErr
	}
	if doc := outcome.Document; doc != nil {
		b := doc.Bounds()
		r.size = fmt.Sprintf("%dx%d %s", b.Dx(), b.Dy(), doc.Format)
	}
	return r
}

// manualDevice builds a record for a typed-in address, adding the default
// port when none is given.
func manualDevice(value string) registry.DeviceRecord {
	address := registry.ParseAddress(value, discovery.DefaultPort)
	return registry.DeviceRecord{Name: address, Kind: registry.KindESCL, Address: address}
}

// waitForEvent blocks on the next session event
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func startScan(ctx context.Context, backend Backend, dev registry.DeviceRecord) tea.Cmd {
	return func() tea.Msg {
		if _, err := backend.ScanDevice(ctx, dev); err != nil {
			return scanRejectedMsg{device: dev, err: err}
		}
		return nil
	}
}

func saveScan(dir string, outcome escl.Outcome, at time.Time) tea.Cmd {
	return func() tea.Msg {
		path, err := session.SaveDocument(dir, outcome.Device, outcome.Document, at)
		return scanSavedMsg{outcome: outcome, path: path, err: err}
	}
}

// Run starts the full-screen interface and blocks until the user quits.
func Run(ctx context.Context, backend Backend, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, backend, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interface failed: %w", err)
	}
	return nil
}
