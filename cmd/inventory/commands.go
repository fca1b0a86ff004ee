package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"computer-inventory/internal/handler"
	"computer-inventory/internal/middleware"
	"computer-inventory/internal/model"
	"computer-inventory/internal/router"
	"computer-inventory/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty encrypted inventory file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Inventory.DataFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			password, err := a.readPassword(true)
			if err != nil {
				return err
			}
			defer password.Zero()

			svc, release, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			svc.CreateNew(path, password)
			if err := svc.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.serveInventory(cmd.Context(), create)
			if err != nil {
				return err
			}
			defer release()

			h := handler.NewInventoryHandler(svc, a.logger)
			server := &http.Server{
				Addr:           fmt.Sprintf(":%d", a.cfg.Port),
				Handler:        router.NewRouter(h, a.cfg, a.logger),
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				WriteTimeout:   a.cfg.Server.WriteTimeout,
				IdleTimeout:    a.cfg.Server.IdleTimeout,
				MaxHeaderBytes: a.cfg.Server.MaxHeaderBytes,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				a.logger.Info("Starting server",
					zap.Int("port", a.cfg.Port),
					zap.String("file", svc.Path()),
					zap.Int("rate_limit_rps", a.cfg.Security.RateLimitRPS),
					zap.Int("rate_limit_burst", a.cfg.Security.RateLimitBurst),
					zap.Bool("cors", a.cfg.Security.EnableCORS),
					zap.Bool("auth", a.cfg.Security.JWTSecret != ""),
					zap.Duration("request_timeout", a.cfg.Security.RequestTimeout))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("failed to start server: %w", err)
				}
			case <-ctx.Done():
			}
			a.logger.Info("Server is shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Security.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Server forced to shutdown", zap.Error(err))
			} else {
				a.logger.Info("Server exited gracefully")
			}

			return saveOnExit(svc, a.cfg.Security.ShutdownTimeout, a.logger)
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "start an empty inventory when the file does not exist")
	return cmd
}

// exitSaver is the part of the inventory service used on the way out.
type exitSaver interface {
	IsDirty() bool
	Save(ctx context.Context) error
	Path() string
}

// saveOnExit writes unsaved changes under its own deadline, independent of
// the time the server spent draining connections.
func saveOnExit(svc exitSaver, timeout time.Duration, logger *zap.Logger) error {
	if !svc.IsDirty() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := svc.Save(ctx); err != nil {
		return fmt.Errorf("failed to save unsaved changes: %w", err)
	}
	logger.Info("Saved unsaved changes", zap.String("file", svc.Path()))
	return nil
}

// serveInventory opens the configured file, or starts a new one when it is
// missing and create is set.
func (a *app) serveInventory(ctx context.Context, create bool) (*service.InventoryService, func(), error) {
	path := a.cfg.Inventory.DataFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && create {
		password, err := a.readPassword(true)
		if err != nil {
			return nil, nil, err
		}
		defer password.Zero()

		svc, release, err := a.newService(ctx)
		if err != nil {
			return nil, nil, err
		}
		svc.CreateNew(path, password)
		a.logger.Info("Starting with an empty inventory", zap.String("file", path))
		return svc, release, nil
	}
	return a.openInventory(ctx)
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Decrypt the inventory and verify every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.openInventory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			violations, err := svc.Violations(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(violations) > 0 {
				for _, v := range violations {
					fmt.Fprintln(out, v)
				}
				return fmt.Errorf("%d violation(s) found", len(violations))
			}

			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "OK: %d employees, %d computers (%d assigned)\n",
				stats.Employees, stats.Computers, stats.AssignedComputers)
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print inventory reports",
	}

	var below int
	ram := &cobra.Command{
		Use:   "ram",
		Short: "List computers with less RAM than --below gigabytes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.openInventory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			computers, err := svc.RAMReport(cmd.Context(), below)
			if err != nil {
				return err
			}
			return writeComputerTable(cmd.OutOrStdout(), computers)
		},
	}
	ram.Flags().IntVar(&below, "below", 0, "RAM threshold in gigabytes")
	_ = ram.MarkFlagRequired("below")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print summary counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.openInventory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			st, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}

	cmd.AddCommand(ram, stats)
	return cmd
}

func writeComputerTable(w io.Writer, computers []model.Computer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tINVENTORY\tSERIAL\tMANUFACTURER\tMODEL\tRAM (GB)\tROOM\tCONDITION")
	for _, c := range computers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.InventoryNumber, c.SerialNumber, c.Manufacturer, c.Model, c.RAMSize, c.RoomNumber, c.Condition)
	}
	return tw.Flush()
}

// exportDocument is the plain JSON form written by export --json.
type exportDocument struct {
	ExportedAt time.Time        `json:"exported_at"`
	Employees  []model.Employee `json:"employees"`
	Computers  []model.Computer `json:"computers"`
}

func newExportCmd(a *app) *cobra.Command {
	var asJSON bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the inventory to the PostgreSQL mirror or to plain JSON",
		Long: `Without flags the decrypted inventory replaces the contents of the
PostgreSQL mirror (DB_ENABLED must be set). With --json the records are
written unencrypted to stdout or --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asJSON && !a.cfg.Database.Enabled {
				return errors.New("database mirror is disabled (set DB_ENABLED=true or use --json)")
			}

			svc, release, err := a.openInventory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if !asJSON {
				if err := svc.SyncMirror(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Mirror updated")
				return nil
			}

			employees, err := svc.ListEmployees(cmd.Context())
			if err != nil {
				return err
			}
			computers, err := svc.ListComputers(cmd.Context())
			if err != nil {
				return err
			}
			doc := exportDocument{ExportedAt: time.Now().UTC(), Employees: employees, Computers: computers}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write unencrypted JSON instead of updating the mirror")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "JSON output file (default stdout)")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Security.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := middleware.GenerateToken(subject, a.cfg.Security.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
