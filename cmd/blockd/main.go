// Package main is the CLI entry point for blockd.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lorenzoconte/exizt/blockd/internal/config"
	"github.com/lorenzoconte/exizt/blockd/internal/daemon"
	"github.com/lorenzoconte/exizt/blockd/internal/domain"
	"github.com/lorenzoconte/exizt/blockd/internal/infra"
	"github.com/lorenzoconte/exizt/blockd/internal/policy"
	"github.com/lorenzoconte/exizt/blockd/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.2.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// usageRetentionDays bounds the usage DB; daily aggregations never look
// further back than this.
const usageRetentionDays = 90

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "blockd",
	Short: "Screen-time blocker - keeps distracting apps off the foreground",
	Long: `blockd is the blocking core of a digital-wellbeing setup. It listens to
foreground and content events from the accessibility bridge, enforces the
configured blocking policy (deny list, focus mode, daily group budgets,
short-video content) and records per-app screen time.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the blocking listener daemon",
	Long: `Starts the listener loop: consumes accessibility events from the bridge,
evaluates the blocking policy for each one, and writes home-redirect and
warning actions back to the bridge. Blocks until interrupted.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show listener and policy status",
	RunE:  runStatus,
}

var blockingCmd = &cobra.Command{
	Use:   "blocking on|off",
	Short: "Enable or disable deny-list blocking",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocking,
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage the blocked-app deny list",
}

var appsSetCmd = &cobra.Command{
	Use:   "set <package>...",
	Short: "Replace the deny list with the given packages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAppsSet,
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List denied packages",
	RunE:  runAppsList,
}

var focusCmd = &cobra.Command{
	Use:   "focus on|off",
	Short: "Enable or disable focus mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runFocus,
}

var focusAppsCmd = &cobra.Command{
	Use:   "apps <package>...",
	Short: "Replace the focus-mode block list with the given packages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFocusApps,
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage app groups with daily time budgets",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name> <package>...",
	Short: "Create an app group with a daily limit",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGroupAdd,
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List app groups",
	RunE:  runGroupList,
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an app group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupDelete,
}

var contentCmd = &cobra.Command{
	Use:   "content on|off",
	Short: "Enable or disable short-video content blocking",
	Args:  cobra.ExactArgs(1),
	RunE:  runContent,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show per-app screen time for a day",
	Long:  `Prints per-package foreground time for today, or for --date YYYY-MM-DD.`,
	RunE:  runUsage,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden warn command - lets the bridge side trigger the interstitial
// manually, mostly useful when debugging the action stream.
var warnCmd = &cobra.Command{
	Use:    "warn <package>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runWarn,
}

var (
	configPath string
	groupLimit int
	usageDate  string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Path to config file")
	groupAddCmd.Flags().IntVar(&groupLimit, "limit", 0, "Daily limit in minutes")
	usageCmd.Flags().StringVar(&usageDate, "date", "", "Day to report (YYYY-MM-DD), defaults to today")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	appsCmd.AddCommand(appsSetCmd)
	appsCmd.AddCommand(appsListCmd)
	focusCmd.AddCommand(focusAppsCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupDeleteCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(blockingCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(warnCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	key, err := infra.EnsureKey(infra.NewFileKeyProvider(cfg.Data.Dir))
	if err != nil {
		return fmt.Errorf("failed to prepare usage DB key: %w", err)
	}

	usageDB, err := infra.NewEncryptedUsageLog(cfg.Data.Dir, key)
	if err != nil {
		return fmt.Errorf("failed to open usage DB: %w", err)
	}
	defer func() { _ = usageDB.Close() }()

	// Usage older than the retention horizon has no reader; drop it.
	if pruned, err := usageDB.Prune(context.Background(), time.Now().AddDate(0, 0, -usageRetentionDays)); err != nil {
		logger.Warn("failed to prune usage history", zap.Error(err))
	} else if pruned > 0 {
		logger.Info("pruned usage history", zap.Int64("sessions", pruned))
	}

	store, err := infra.NewFilePolicyStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}

	events, err := infra.OpenEventStream(cfg.Bridge.EventsPath)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer func() { _ = events.Close() }()

	actions, err := infra.OpenActionWriter(cfg.Bridge.ActionsPath)
	if err != nil {
		return fmt.Errorf("failed to open action writer: %w", err)
	}
	defer func() { _ = actions.Close() }()

	probe := infra.NewProcessProbe()
	registry := infra.NewFileListenerRegistry(cfg.Data.Dir, probe)

	aggregator := usecase.NewAggregator(usageDB, cfg.Blocker.OwnPackage, cfg.Blocker.ExemptPackages, logger)
	appBlocker := usecase.NewAppBlocker(store, aggregator, cfg.Blocker.OwnPackage, cfg.Blocker.ExemptPackages, logger)
	rules := policy.NewRegistry()
	logger.Info("content rules loaded",
		zap.Int("rules", len(rules.GetAll())),
		zap.Strings("packages", rules.TargetPackages()))
	contentBlocker := usecase.NewContentBlocker(store, rules, logger)
	interventer := usecase.NewInterventer(actions, actions, cfg.Blocker.SettleDelay, logger)
	recorder := usecase.NewRecorder(usageDB, logger)

	listener := daemon.NewListener(
		daemon.ListenerConfig{
			HeartbeatInterval: cfg.Blocker.HeartbeatInterval,
			RefreshInterval:   cfg.Blocker.RefreshInterval,
		},
		events,
		appBlocker,
		contentBlocker,
		interventer,
		recorder,
		store,
		aggregator,
		registry,
		probe,
		Version,
		logger,
	)

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	probe := infra.NewProcessProbe()
	registry := infra.NewFileListenerRegistry(cfg.Data.Dir, probe)

	fmt.Println("\n=== blockd Status ===")

	state, err := registry.Get()
	if err != nil || state == nil {
		fmt.Println("Listener: NOT RUNNING")
		fmt.Println("\nRun 'blockd run' to start blocking.")
	} else if probe.IsRunning(state.PID) {
		fmt.Printf("Listener: RUNNING (pid %d, v%s)\n", state.PID, state.AppVersion)
		if state.LastHeartbeat > 0 {
			lastBeat := time.Unix(state.LastHeartbeat, 0)
			fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
		}
		if state.BlockingActive {
			fmt.Println("Blocking: ACTIVE")
		} else {
			fmt.Println("Blocking: idle")
		}
		if state.RemainingMinutes >= 0 {
			fmt.Printf("Smallest group budget left today: %d min\n", state.RemainingMinutes)
		}
	} else {
		fmt.Printf("Listener: DEAD (stale registration, pid %d)\n", state.PID)
	}

	store, err := infra.NewFilePolicyStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}
	snapshot := store.Snapshot()

	fmt.Println("\nPolicy:")
	fmt.Printf("  Deny list: %d packages (blocking %s)\n",
		len(snapshot.BlockedPackages), onOff(snapshot.BlockingActive))
	fmt.Printf("  Focus mode: %s (%d packages)\n",
		onOff(snapshot.FocusModeActive), len(snapshot.FocusModeApps))
	fmt.Printf("  App groups: %d\n", len(snapshot.AppGroups))
	fmt.Printf("  Content blocking: %s\n", onOff(snapshot.ContentBlockEnabled))

	fmt.Println("=====================")
	return nil
}

func runBlocking(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.SetBlockingActive(enabled); err != nil {
		return err
	}
	fmt.Printf("Deny-list blocking: %s\n", onOff(enabled))
	return nil
}

func runAppsSet(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.SetBlockedApps(args); err != nil {
		return err
	}
	fmt.Printf("Deny list set (%d packages)\n", len(args))
	return nil
}

func runAppsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	snapshot := store.Snapshot()

	if len(snapshot.BlockedPackages) == 0 {
		fmt.Println("Deny list is empty.")
		return nil
	}

	pkgs := make([]string, 0, len(snapshot.BlockedPackages))
	for pkg := range snapshot.BlockedPackages {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	fmt.Printf("Denied packages (blocking %s):\n", onOff(snapshot.BlockingActive))
	for _, pkg := range pkgs {
		fmt.Printf("  - %s\n", pkg)
	}
	return nil
}

func runFocus(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.SetFocusMode(enabled); err != nil {
		return err
	}
	fmt.Printf("Focus mode: %s\n", onOff(enabled))
	return nil
}

func runFocusApps(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.SetFocusModeApps(args); err != nil {
		return err
	}
	fmt.Printf("Focus-mode list set (%d packages)\n", len(args))
	return nil
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}

	name, apps := args[0], args[1:]
	if err := settings.SaveAppGroup(name, apps, groupLimit); err != nil {
		return err
	}
	fmt.Printf("Group %q saved: %d packages, %d min/day\n", name, len(apps), groupLimit)
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}

	groups := settings.AppGroups()
	if len(groups) == 0 {
		fmt.Println("No app groups configured.")
		return nil
	}

	for _, g := range groups {
		fmt.Printf("\n[%s] %d min/day\n", g.Name, g.DailyLimitMinutes)
		for _, pkg := range g.Members {
			fmt.Printf("  - %s\n", pkg)
		}
	}
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.DeleteAppGroup(args[0]); err != nil {
		return err
	}
	fmt.Printf("Group %q deleted\n", args[0])
	return nil
}

func runContent(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	if err := settings.SetContentBlockEnabled(enabled); err != nil {
		return err
	}

	fmt.Printf("Content blocking: %s\n", onOff(enabled))
	if enabled {
		fmt.Println("Targeted surfaces:")
		for _, rule := range policy.NewRegistry().GetAll() {
			fmt.Printf("  - %s\n", rule.Name())
		}
	}
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	window := domain.TodayWindow(time.Now())
	label := "today"
	if usageDate != "" {
		day, err := time.ParseInLocation("2006-01-02", usageDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", usageDate, err)
		}
		window = domain.DayWindow(day.Year(), day.Month(), day.Day(), time.Local)
		label = usageDate
	}

	keyProvider := infra.NewFileKeyProvider(cfg.Data.Dir)
	if !keyProvider.KeyExists() {
		fmt.Println("No usage data recorded yet.")
		return nil
	}
	key, err := keyProvider.GetKey()
	if err != nil {
		return fmt.Errorf("failed to read usage DB key: %w", err)
	}

	usageDB, err := infra.NewEncryptedUsageLog(cfg.Data.Dir, key)
	if err != nil {
		return fmt.Errorf("failed to open usage DB: %w", err)
	}
	defer func() { _ = usageDB.Close() }()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	aggregator := usecase.NewAggregator(usageDB, cfg.Blocker.OwnPackage, cfg.Blocker.ExemptPackages, logger)
	total, perApp, err := aggregator.DeviceScreenTime(cmd.Context(), window)
	if err != nil {
		return fmt.Errorf("failed to aggregate usage: %w", err)
	}

	fmt.Printf("\n=== Screen time (%s) ===\n", label)
	if len(perApp) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	pkgs := make([]string, 0, len(perApp))
	for pkg := range perApp {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		if perApp[pkgs[i]] != perApp[pkgs[j]] {
			return perApp[pkgs[i]] > perApp[pkgs[j]]
		}
		return pkgs[i] < pkgs[j]
	})

	for _, pkg := range pkgs {
		fmt.Printf("  %-40s %s\n", pkg, perApp[pkg].Round(time.Second))
	}
	fmt.Printf("\nTotal: %s\n", total.Round(time.Second))
	return nil
}

func runWarn(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	actions, err := infra.OpenActionWriter(cfg.Bridge.ActionsPath)
	if err != nil {
		return fmt.Errorf("failed to open action writer: %w", err)
	}
	defer func() { _ = actions.Close() }()

	return actions.ShowWarning(args[0])
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("blockd %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// openStore loads configuration and opens the policy store for one-shot
// CLI commands.
func openStore() (*infra.FilePolicyStore, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := infra.NewFilePolicyStore(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy store: %w", err)
	}
	return store, nil
}

func openSettings() (*usecase.Settings, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	logger, _ := zap.NewDevelopment()
	return usecase.NewSettings(store, logger), nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected 'on' or 'off', got %q", arg)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func createLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Logging.File != "" {
		zapCfg.OutputPaths = []string{cfg.Logging.File}
		zapCfg.ErrorOutputPaths = []string{cfg.Logging.File}
	}
	if level, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
