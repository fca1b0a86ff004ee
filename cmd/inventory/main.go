// Command inventory manages an encrypted computer inventory file and serves
// it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"computer-inventory/internal/config"
	"computer-inventory/internal/database"
	"computer-inventory/internal/notification"
	"computer-inventory/internal/repository"
	"computer-inventory/internal/security"
	"computer-inventory/internal/service"
	servicenotification "computer-inventory/internal/service/notification"
	"computer-inventory/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	envFile string
	file    string

	cfg    *config.Config
	logger *zap.Logger
}

// newRootCmd builds a fresh command tree so tests can run commands in
// isolation.
func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "inventory",
		Short:         "Encrypted inventory of employees and their computers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env", ".env", "dotenv file to read before the environment (empty to skip)")
	cmd.PersistentFlags().StringVarP(&a.file, "file", "f", "", "inventory file (overrides INVENTORY_FILE)")

	cmd.AddCommand(
		newInitCmd(a),
		newServeCmd(a),
		newCheckCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newTokenCmd(a),
	)
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadConfigFrom(a.envFile)
	if err != nil {
		return err
	}
	if a.file != "" {
		cfg.Inventory.DataFile = a.file
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLogger builds a production zap logger writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.Sampling = nil
	return zcfg.Build()
}

// readPassword returns INVENTORY_PASSWORD or prompts on the terminal. With
// confirm set the password has to be typed twice.
func (a *app) readPassword(confirm bool) (security.Password, error) {
	if a.cfg.Inventory.Password != "" {
		return security.PasswordFromString(a.cfg.Inventory.Password), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("INVENTORY_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Inventory password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(first) == 0 {
		return nil, errors.New("password must not be empty")
	}
	if !confirm {
		return security.NewPassword(first), nil
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	p1, p2 := security.NewPassword(first), security.NewPassword(second)
	clear(first)
	clear(second)
	defer p2.Zero()
	if !p1.Equal(p2) {
		p1.Zero()
		return nil, errors.New("passwords do not match")
	}
	return p1, nil
}

// newService wires storage, the webhook notifier and, when enabled, the
// PostgreSQL mirror. The returned func releases all of it.
func (a *app) newService(ctx context.Context) (*service.InventoryService, func(), error) {
	inv := a.cfg.Inventory
	files := storage.NewService(storage.Options{
		Compress:   inv.Compress,
		KDF:        inv.KDFParams(),
		MaxPayload: inv.MaxPayload,
		FileMode:   0o600,
	}, a.logger)

	nc := a.cfg.NotificationService
	notifier := notification.NewNotifierWithConfig(notification.NotificationConfig{
		URL:            nc.URL,
		Timeout:        nc.Timeout,
		RetryAttempts:  nc.RetryAttempts,
		RetryDelay:     nc.RetryDelay,
		MaxPayloadSize: nc.MaxPayloadSize,
	}, a.logger)
	if nc.URL != "" && !notifier.IsHealthy(ctx) {
		a.logger.Warn("Notification service is not reachable", zap.String("url", nc.URL))
	}

	opts := []service.Option{service.WithLowRAMThreshold(inv.LowRAMWarnBelow)}
	closeDB := func() {}
	if a.cfg.Database.Enabled {
		db, err := database.InitDB(a.cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		opts = append(opts, service.WithMirror(repository.NewInventoryRepository(db)))
		closeDB = func() { db.Close() }
		a.logger.Info("Database mirror enabled",
			zap.String("host", a.cfg.Database.Host),
			zap.String("database", a.cfg.Database.Name))
	}

	svc := service.NewInventoryService(files, servicenotification.NewServiceAdapter(notifier), a.logger, opts...)
	return svc, func() {
		svc.Close()
		closeDB()
	}, nil
}

// openInventory builds the service and opens the configured file.
func (a *app) openInventory(ctx context.Context) (*service.InventoryService, func(), error) {
	password, err := a.readPassword(false)
	if err != nil {
		return nil, nil, err
	}
	defer password.Zero()

	svc, release, err := a.newService(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Open(a.cfg.Inventory.DataFile, password); err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to open %s: %w", a.cfg.Inventory.DataFile, err)
	}
	return svc, release, nil
}
