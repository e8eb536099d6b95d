package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	webview "github.com/webview/webview_go"

	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/datapack"
	"github.com/kartoza/house-price-estimator/internal/estimate"
	"github.com/kartoza/house-price-estimator/internal/logging"
	"github.com/kartoza/house-price-estimator/internal/server"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flags shared by every command that reads the data directory
type dataFlags struct {
	dataDir   string
	model     string
	reference string
	logLevel  string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Directory containing the model artifact and reference dataset")
	cmd.PersistentFlags().StringVar(&f.model, "model", "", "Model artifact path (default <data-dir>/"+config.DefaultModelFile+")")
	cmd.PersistentFlags().StringVar(&f.reference, "reference", "", "Reference dataset path, .csv or .db (default <data-dir>/"+config.DefaultReferenceFile+")")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads .env and the environment, applies flags given on the
// command line and initializes logging.
func (f *dataFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	cfg.Version = version

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if flags.Changed("model") {
		cfg.ModelPath = f.model
	}
	if flags.Changed("reference") {
		cfg.ReferencePath = f.reference
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	logging.Init(config.AppName, cfg.LogLevel)
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	var (
		df       dataFlags
		port     int
		mode     string
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "house-price-estimator",
		Short: "Melbourne housing price predictor",
		Long: `Serves a form for property features and predicts the sale price with a
trained regression model. Opens a desktop window unless --headless is given.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := df.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("encoding-mode") {
				cfg.EncodingMode = mode
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}
			return serve(cfg, headless)
		},
	}

	df.register(cmd)
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&mode, "encoding-mode", config.ModePersisted, "Encoding mode: persisted or refit")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run in headless mode (no GUI window)")
	cmd.SetVersionTemplate("House Price Estimator v{{.Version}}\n")

	cmd.AddCommand(newFitCmd(&df), newInstallCmd(&df))
	return cmd
}

func newFitCmd(df *dataFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Fit the encoder and scaler on the reference dataset and store them in the model artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := df.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			pre, err := estimate.FitPreprocessor(cfg.ReferencePath, cfg.ModelPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fitted %d features on %d rows\n", len(pre.Features), pre.Rows)
			return nil
		},
	}
}

func newInstallCmd(df *dataFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install <pack.zip>",
		Short: "Install a data pack holding a model artifact and reference dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := df.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			m, err := datapack.Install(args[0], cfg.DataDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed data pack %s into %s\n", m.Version, cfg.DataDir)
			return nil
		},
	}
}

func serve(cfg config.Config, headless bool) error {
	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		return fmt.Errorf("failed to find available port: %w", err)
	}
	if availablePort != cfg.Port {
		logging.Logger.Infof("Port %d in use, using port %d instead", cfg.Port, availablePort)
		cfg.Port = availablePort
	}

	logging.Logger.Infof("House Price Estimator v%s starting on port %d", version, cfg.Port)
	logging.Logger.Infof("Model: %s, reference: %s, encoding mode: %s", cfg.ModelPath, cfg.ReferencePath, cfg.EncodingMode)

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second)

	if headless {
		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logging.Logger.Infof("Received %v signal, shutting down...", sig)
			return srv.Stop()
		}
	}

	// GUI mode: open embedded WebView window
	logging.Logger.Infof("Opening application window...")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Melbourne housing price predictor")
	w.SetSize(960, 760, webview.HintNone)
	w.Navigate(serverURL)

	// When the webview window closes, shut down the server
	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				logging.Logger.Errorf("Server error: %v", err)
			}
		case sig := <-stop:
			logging.Logger.Infof("Received %v signal, shutting down...", sig)
		}
		w.Dispatch(w.Terminate)
	}()

	// Run blocks until the window is closed
	w.Run()

	logging.Logger.Infof("Window closed, shutting down server...")
	return srv.Stop()
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	logging.Logger.Warnf("Warning: server may not be ready at %s", url)
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
