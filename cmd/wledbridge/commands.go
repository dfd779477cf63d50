package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wled-tools/wledbridge/internal/bridge"
	"github.com/wled-tools/wledbridge/internal/config"
	"github.com/wled-tools/wledbridge/internal/coordinator"
	"github.com/wled-tools/wledbridge/internal/discovery"
	"github.com/wled-tools/wledbridge/internal/tui"
	"github.com/wled-tools/wledbridge/internal/wled"
)

// Command flags
var (
	deviceHost   string
	compatMode   bool
	scanTimeout  int
	outputFormat string

	onBrightness int
	onTransition int
	onPreset     int

	offTransition int

	briTransition int

	fxSpeed     int
	fxIntensity int
	fxPalette   int

	serveListen string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceHost, "host", "", "Device hostname or IP (uses configured default if omitted)")
	rootCmd.PersistentFlags().BoolVar(&compatMode, "compat", false, "Compatibility mode: fixed-delay retries for older firmware")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(effectCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// resolveHost picks the device host from the --host flag or the configured
// default device, and validates it either way.
func resolveHost() (string, error) {
	host := deviceHost
	if host == "" {
		settings, err := config.LoadSettings()
		if err != nil {
			return "", err
		}
		host, err = settings.DefaultDeviceHost()
		if err != nil {
			return "", fmt.Errorf("%w (use --host or run 'wledbridge scan')", err)
		}
	}
	if err := config.ValidateHost(host); err != nil {
		return "", err
	}
	return host, nil
}

func newClient() (*wled.Client, error) {
	host, err := resolveHost()
	if err != nil {
		return nil, err
	}
	return wled.NewClientWithOptions(host, wled.Options{
		CompatibilityMode: compatMode,
	}), nil
}

// scanCmd discovers WLED devices on the local network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for WLED devices on the network",
	Long: `Scan for WLED devices using mDNS/DNS-SD discovery.

Discovered devices are remembered in the configuration file so later
commands can use them by default.`,
	Example: `  # Scan for 10 seconds (default)
  wledbridge scan

  # Quick 3-second scan
  wledbridge scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for WLED devices (timeout: %ds)...\n\n", scanTimeout)

	devices, err := discovery.ScanForDevices(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and on the same network")
		fmt.Println("  - Check that mDNS traffic is not blocked between VLANs")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --host to specify the address manually")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))

	settings, settingsErr := config.LoadSettings()
	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Name)
		fmt.Printf("   Hostname: %s\n", device.Hostname)
		fmt.Printf("   IP:       %s:%d\n", device.IP, device.Port)
		if device.MAC != "" {
			fmt.Printf("   MAC:      %s\n", device.MAC)
		}
		fmt.Println()

		if settingsErr == nil {
			if err := settings.RememberDevice(device.Name, device.Host()); err == nil && settings.Preferences.DefaultDevice == "" {
				settings.Preferences.DefaultDevice = device.Name
			}
		}
	}

	if settingsErr == nil {
		if err := settings.Save(); err != nil {
			fmt.Printf("Warning: could not save device list: %v\n\n", err)
		}
	}

	fmt.Println("Use 'wledbridge status --host <ip>' to check a device")
	fmt.Println("Use 'wledbridge watch' for a live dashboard")

	return nil
}

// statusCmd shows the device's current state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show device state and info",
	Long: `Connect to the device and display its current state: power,
brightness, active preset or playlist, effect, and firmware info.`,
	Example: `  # Status of the default device
  wledbridge status

  # Status of a specific device, as JSON
  wledbridge status --host 192.168.1.40 --format json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	full, err := client.GetFullState(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get device state: %w", err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(full.Raw)
	}

	power := "off"
	if full.State.On {
		power = "on"
	}

	fmt.Printf("Device:      %s (%s)\n", full.Info.Name, client.Host())
	fmt.Printf("Firmware:    %s\n", full.Info.Version)
	fmt.Printf("LEDs:        %d\n", full.Info.LEDCount)
	fmt.Printf("Power:       %s\n", power)
	fmt.Printf("Brightness:  %d\n", full.State.Brightness)
	if full.State.Preset >= 0 {
		fmt.Printf("Preset:      %d\n", full.State.Preset)
	}
	if full.State.Playlist >= 0 {
		fmt.Printf("Playlist:    %d\n", full.State.Playlist)
	}
	if len(full.State.Segments) > 0 {
		seg := full.State.Segments[0]
		name := strconv.Itoa(seg.Effect)
		if seg.Effect >= 0 && seg.Effect < len(full.Effects) {
			name = fmt.Sprintf("%s (%d)", full.Effects[seg.Effect], seg.Effect)
		}
		fmt.Printf("Effect:      %s\n", name)
	}

	return nil
}

// onCmd turns the device on
var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the device on",
	Example: `  # Turn on
  wledbridge on

  # Turn on at half brightness with a 1.5s fade
  wledbridge on --brightness 128 --transition 15`,
	RunE: runOn,
}

func init() {
	onCmd.Flags().IntVar(&onBrightness, "brightness", -1, "Brightness 0-255 (unchanged if omitted)")
	onCmd.Flags().IntVar(&onTransition, "transition", -1, "Transition time in 100ms units")
	onCmd.Flags().IntVar(&onPreset, "preset", -1, "Preset to recall while turning on")
}

func runOn(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := wled.TurnOnOptions{}
	if onBrightness >= 0 {
		opts.Brightness = &onBrightness
	}
	if onTransition >= 0 {
		opts.Transition = &onTransition
	}
	if onPreset >= 0 {
		opts.Preset = &onPreset
	}

	state, err := client.TurnOn(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Printf("Device is on (brightness %d)\n", state.Brightness)
	return nil
}

// offCmd turns the device off
var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the device off",
	RunE:  runOff,
}

func init() {
	offCmd.Flags().IntVar(&offTransition, "transition", -1, "Transition time in 100ms units")
}

func runOff(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var transition *int
	if offTransition >= 0 {
		transition = &offTransition
	}

	if _, err := client.TurnOff(cmd.Context(), transition); err != nil {
		return err
	}
	fmt.Println("Device is off")
	return nil
}

// brightnessCmd sets the master brightness
var brightnessCmd = &cobra.Command{
	Use:   "brightness <0-255>",
	Short: "Set master brightness",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrightness,
}

func init() {
	brightnessCmd.Flags().IntVar(&briTransition, "transition", -1, "Transition time in 100ms units")
}

func runBrightness(cmd *cobra.Command, args []string) error {
	value, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid brightness %q: must be a number 0-255", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var transition *int
	if briTransition >= 0 {
		transition = &briTransition
	}

	state, err := client.SetBrightness(cmd.Context(), value, transition)
	if err != nil {
		return err
	}
	fmt.Printf("Brightness set to %d\n", state.Brightness)
	return nil
}

// effectCmd selects an effect on segment 0
var effectCmd = &cobra.Command{
	Use:   "effect <id>",
	Short: "Select an effect",
	Long: `Select an effect on the first segment by its numeric id, optionally
setting effect speed, intensity, and palette in the same command.`,
	Example: `  # Effect 5 with defaults
  wledbridge effect 5

  # Effect 5, fast and intense, palette 3
  wledbridge effect 5 --speed 200 --intensity 220 --palette 3`,
	Args: cobra.ExactArgs(1),
	RunE: runEffect,
}

func init() {
	effectCmd.Flags().IntVar(&fxSpeed, "speed", -1, "Effect speed 0-255")
	effectCmd.Flags().IntVar(&fxIntensity, "intensity", -1, "Effect intensity 0-255")
	effectCmd.Flags().IntVar(&fxPalette, "palette", -1, "Palette id")
}

func runEffect(cmd *cobra.Command, args []string) error {
	effect, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid effect id %q", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var speed, intensity, palette *int
	if fxSpeed >= 0 {
		speed = &fxSpeed
	}
	if fxIntensity >= 0 {
		intensity = &fxIntensity
	}
	if fxPalette >= 0 {
		palette = &fxPalette
	}

	if _, err := client.SetEffect(cmd.Context(), effect, speed, intensity, palette); err != nil {
		return err
	}
	fmt.Printf("Effect %d applied\n", effect)
	return nil
}

// presetCmd recalls a saved preset
var presetCmd = &cobra.Command{
	Use:   "preset <id>",
	Short: "Recall a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreset,
}

func runPreset(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid preset id %q", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.SetPreset(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Preset %d activated\n", id)
	return nil
}

// playlistCmd starts a playlist
var playlistCmd = &cobra.Command{
	Use:   "playlist <id>",
	Short: "Start a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylist,
}

func runPlaylist(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid playlist id %q", args[0])
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.ActivatePlaylist(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Playlist %d started\n", id)
	return nil
}

// presetsCmd lists the device's saved presets and playlists
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List saved presets and playlists",
	RunE:  runPresets,
}

func runPresets(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	lib, err := client.GetPresets(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get presets: %w", err)
	}

	if len(lib.Presets) == 0 && len(lib.Playlists) == 0 {
		fmt.Println("No presets saved on this device.")
		return nil
	}

	if len(lib.Presets) > 0 {
		fmt.Printf("Presets (%d):\n", len(lib.Presets))
		for id, name := range lib.PresetNames() {
			fmt.Printf("  %3d  %s\n", id, name)
		}
	}
	if len(lib.Playlists) > 0 {
		fmt.Printf("\nPlaylists (%d):\n", len(lib.Playlists))
		for id, name := range lib.PlaylistNames() {
			fmt.Printf("  %3d  %s\n", id, name)
		}
	}

	return nil
}

// watchCmd runs the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard for a device",
	Long: `Poll the device continuously and render a live dashboard with power,
brightness, effect, and availability, with keybindings for power toggle
and brightness.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (use 'status' for scripted output)")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	coord := coordinator.New(client)
	model := tui.NewWatch(coord, client.Host())

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// serveCmd runs the bridge server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge server",
	Long: `Poll the device in the background and expose its state and commands
to a home-automation host over HTTP and WebSocket.

During transient outages the bridge keeps serving the last known state
with the availability flag cleared after repeated failures.`,
	Example: `  # Serve the default device on the configured address
  wledbridge serve

  # Serve a specific device on a specific port
  wledbridge serve --host 192.168.1.40 --listen :9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, falls back to :8420)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host, err := resolveHost()
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	listen := serveListen
	if listen == "" {
		listen = settings.Preferences.BridgeListen
	}
	if listen == "" {
		listen = ":8420"
	}

	clientOpts := wled.Options{CompatibilityMode: compatMode}
	coordOpts := []coordinator.Option{}
	for _, device := range settings.Devices {
		if device.Host != host {
			continue
		}
		if device.CompatibilityMode {
			clientOpts.CompatibilityMode = true
		}
		if device.PollInterval > 0 {
			coordOpts = append(coordOpts, coordinator.WithPollInterval(device.PollInterval))
		}
		if device.PresetsInterval > 0 {
			coordOpts = append(coordOpts, coordinator.WithPresetsInterval(device.PresetsInterval))
		}
		break
	}

	client := wled.NewClientWithOptions(host, clientOpts)
	defer client.Close()

	coord := coordinator.New(client, coordOpts...)
	server := bridge.NewServer(listen, coord)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the cache before accepting traffic; a failure here is not fatal,
	// the poll loop will keep trying.
	if _, err := coord.Poll(ctx); err != nil {
		fmt.Printf("Warning: initial poll failed: %v\n", err)
	}

	go coord.Run(ctx)

	fmt.Printf("Bridging %s on %s\n", host, listen)
	return server.ListenAndServe(ctx)
}
