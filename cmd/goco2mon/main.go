package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d21d3q/goco2mon/internal/config"
	"github.com/d21d3q/goco2mon/internal/monitor"
	"github.com/d21d3q/goco2mon/internal/storage"
	"github.com/d21d3q/goco2mon/internal/storage/csvlog"
	"github.com/d21d3q/goco2mon/internal/storage/sqlite"
	"github.com/d21d3q/goco2mon/pkg/co2mon"
)

var (
	rootCmd = &cobra.Command{
		Use:   "goco2mon",
		Short: "Read ZyTemp USB CO2 monitors",
		Long:  "goco2mon talks to ZyTemp-based USB CO2/temperature monitors (CO2Mini, AIRCO2NTROL and friends).",
	}

	configPath string
	devicePath string
	keyHex     string
	bypass     bool
	rollingKey bool

	csvPath    string
	sqlitePath string
	interval   time.Duration
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to YAML config file")
	pf.StringVar(&devicePath, "device", "", "hidraw device path (default: first attached monitor)")
	pf.StringVar(&keyHex, "key", "", "hex-encoded 8-byte feature-report key (16 hex chars, default all zeros)")
	pf.BoolVar(&bypass, "bypass-decrypt", false, "treat reports as plaintext (hardware variants without obfuscation)")
	pf.BoolVar(&rollingKey, "rolling-key", false, "advance the keystream origin per decoded report")

	decodeCmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode a single 8-byte report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadOptions()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return runInteractive(opts)
			}
			return runDecode(opts, args[0])
		},
	}

	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read one sample from the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadOptions()
			if err != nil {
				return err
			}
			return runRead(cmd.Context(), opts)
		},
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously read samples until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := loadOptions()
			if err != nil {
				return err
			}
			return runMonitor(cmd.Context(), opts, cfg)
		},
	}
	monitorCmd.Flags().StringVar(&csvPath, "csv", "", "append samples to this CSV file")
	monitorCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "append samples to this SQLite database")
	monitorCmd.Flags().DurationVar(&interval, "interval", 0, "pause between samples (overrides config)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List attached monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := co2mon.ListDevices()
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				logrus.Info("no monitors found")
				return nil
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(decodeCmd, readCmd, monitorCmd, listCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

// loadOptions merges the optional config file with command-line
// flags; flags win.
func loadOptions() (co2mon.Options, config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return co2mon.Options{}, config.Config{}, err
		}
		cfg = loaded
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return co2mon.Options{}, config.Config{}, err
	}
	logrus.SetLevel(level)

	opts := co2mon.Options{
		DevicePath:    cfg.Device.Path,
		KeyHex:        cfg.Device.Key,
		BypassDecrypt: cfg.Device.BypassDecrypt,
		RollingKey:    cfg.Device.RollingKey,
		MaxRequests:   cfg.Monitor.MaxRequests,
		Interval:      cfg.Monitor.Interval.Std(),
		HistorySize:   cfg.Monitor.HistorySize,
	}
	if devicePath != "" {
		opts.DevicePath = devicePath
	}
	if keyHex != "" {
		opts.KeyHex = keyHex
	}
	if bypass {
		opts.BypassDecrypt = true
	}
	if rollingKey {
		opts.RollingKey = true
	}
	if interval > 0 {
		opts.Interval = interval
	}
	return opts, cfg, nil
}

func runInteractive(opts co2mon.Options) error {
	scanner := bufio.NewScanner(os.Stdin)
	logrus.Info("decode mode. Paste a hex report and press Enter (Ctrl+D to exit).")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runDecode(opts, line); err != nil {
			logrus.WithError(err).Error("failed to decode report")
		}
	}
	return scanner.Err()
}

func runDecode(opts co2mon.Options, hex string) error {
	result, err := co2mon.DecodeReportHex(hex, opts)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	return nil
}

func runRead(ctx context.Context, opts co2mon.Options) error {
	sample, err := co2mon.ReadData(ctx, opts)
	if err != nil {
		return err
	}
	return printSample(sample)
}

func runMonitor(ctx context.Context, opts co2mon.Options, cfg config.Config) error {
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, st := range stores {
			if err := st.Close(); err != nil {
				logrus.WithError(err).Warn("closing store")
			}
		}
	}()

	mon, err := co2mon.NewMonitor(opts)
	if err != nil {
		return err
	}
	mon.Start()
	logrus.WithField("interval", opts.Interval).Info("monitoring started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("stopping")
			return mon.Stop()
		case sample, ok := <-mon.Samples():
			if !ok {
				return mon.Err()
			}
			logrus.WithFields(logrus.Fields{
				"co2_ppm":       sample.CO2,
				"temperature_c": sample.Temperature,
			}).Info("sample")
			for _, st := range stores {
				if err := st.Append(ctx, []monitor.Sample{sample}); err != nil {
					logrus.WithError(err).Error("failed to persist sample")
				}
			}
		}
	}
}

func openStores(ctx context.Context, cfg config.Config) ([]storage.Store, error) {
	csvTarget := cfg.Log.CSV
	if csvPath != "" {
		csvTarget = csvPath
	}
	sqliteTarget := cfg.Log.SQLite
	if sqlitePath != "" {
		sqliteTarget = sqlitePath
	}

	var stores []storage.Store
	if csvTarget != "" {
		l, err := csvlog.Open(csvTarget)
		if err != nil {
			return nil, err
		}
		stores = append(stores, l)
	}
	if sqliteTarget != "" {
		s, err := sqlite.New(ctx, sqliteTarget)
		if err != nil {
			for _, st := range stores {
				st.Close()
			}
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func printSample(sample co2mon.Sample) error {
	out := map[string]any{
		"time": sample.Time.Format(time.RFC3339),
	}
	if sample.HasCO2 {
		out["co2_ppm"] = sample.CO2
	}
	if sample.HasTemperature {
		out["temperature_c"] = sample.Temperature
	}
	if sample.HasHumidity {
		out["humidity_rh"] = sample.Humidity
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
