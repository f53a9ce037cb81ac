// Package cli implements zkeep's command-line subcommands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zkeep/internal/config"
	"github.com/zarlcorp/zkeep/internal/offline"
	"github.com/zarlcorp/zkeep/internal/passgen"
	"github.com/zarlcorp/zkeep/internal/vault"
	"github.com/zarlcorp/zkeep/internal/web"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const shutdownTimeout = 5 * time.Second

// Runtime carries what the commands need from main.
type Runtime struct {
	Version string
	Config  config.Config

	// FS overrides the data directory; tests use a MemFS.
	FS zfilesystem.ReadWriteFileFS

	// RunTUI runs the interactive program over v.
	RunTUI func(ctx context.Context, v *vault.Vault) error
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCommand builds the zkeep command tree. With no subcommand it runs
// the TUI.
func NewRootCommand(rt *Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "zkeep",
		Short:         "Generate and keep passwords",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.RunTUI == nil {
				return errors.New("no terminal ui available")
			}
			fsys, err := rt.fs()
			if err != nil {
				return err
			}
			// the tui runs degraded and warns on screen
			return rt.RunTUI(cmd.Context(), vault.Open(fsys))
		},
	}

	root.AddCommand(
		newVersionCommand(rt),
		newGenerateCommand(rt),
		newListCommand(rt),
		newRemoveCommand(rt),
		newServeCommand(rt),
		newProxyCommand(rt),
	)
	return root
}

func (rt *Runtime) fs() (zfilesystem.ReadWriteFileFS, error) {
	if rt.FS != nil {
		return rt.FS, nil
	}
	if err := config.EnsureDataDir(rt.Config.DataDir); err != nil {
		return nil, err
	}
	return zfilesystem.NewOSFileSystem(rt.Config.DataDir), nil
}

// openVault opens the vault for a one-shot command. A vault that could not
// be read is refused: writes would never reach disk.
func (rt *Runtime) openVault() (*vault.Vault, error) {
	fsys, err := rt.fs()
	if err != nil {
		return nil, err
	}
	v := vault.Open(fsys)
	if v.Degraded() {
		return nil, fmt.Errorf("open vault: %w", vault.ErrStorageUnavailable)
	}
	return v, nil
}

func newVersionCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zkeep %s\n", rt.Version)
		},
	}
}

func newGenerateCommand(rt *Runtime) *cobra.Command {
	var (
		length                               int
		count                                int
		noUpper, noLower, noDigits, noSymbol bool
		login, url                           string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate passwords",
		Long:  "Generate random passwords. With --login the first one is saved to the vault.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := passgen.Options{
				Upper:   !noUpper,
				Lower:   !noLower,
				Digits:  !noDigits,
				Symbols: !noSymbol,
				Length:  length,
			}

			out := cmd.OutOrStdout()
			var first string
			for i := range max(count, 1) {
				pw, err := passgen.Generate(o)
				if err != nil {
					return err
				}
				if i == 0 {
					first = pw
				}
				fmt.Fprintln(out, pw)
			}

			if login == "" {
				return nil
			}

			v, err := rt.openVault()
			if err != nil {
				return err
			}
			r, err := v.Add(vault.Record{Login: login, Password: first, URL: url})
			if err != nil {
				return fmt.Errorf("save: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", r.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&length, "length", "n", passgen.DefaultLength, "password length (4-64)")
	f.IntVarP(&count, "count", "c", 1, "number of passwords")
	f.BoolVar(&noUpper, "no-upper", false, "exclude uppercase letters")
	f.BoolVar(&noLower, "no-lower", false, "exclude lowercase letters")
	f.BoolVar(&noDigits, "no-digits", false, "exclude numbers")
	f.BoolVar(&noSymbol, "no-symbols", false, "exclude symbols")
	f.StringVar(&login, "login", "", "save the password under this login")
	f.StringVar(&url, "url", "", "url to save with --login")
	return cmd
}

func newListCommand(rt *Runtime) *cobra.Command {
	var asJSON, show bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fsys, err := rt.fs()
			if err != nil {
				return err
			}
			records, err := vault.Read(fsys)
			if err != nil {
				return err
			}
			if !show {
				for i := range records {
					records[i].Password = ""
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(records); err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
				return nil
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "no saved passwords")
				return nil
			}

			if !isTerminal(out) {
				for _, r := range records {
					fmt.Fprintln(out, strings.Join(row(r, show), "\t"))
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			header := []string{"ID", "LOGIN", "URL"}
			if show {
				header = append(header, "PASSWORD")
			}
			fmt.Fprintln(tw, "  "+strings.Join(header, "\t"))
			for _, r := range records {
				fmt.Fprintln(tw, "  "+strings.Join(row(r, show), "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as json")
	cmd.Flags().BoolVar(&show, "show", false, "include passwords")
	return cmd
}

func row(r vault.Record, show bool) []string {
	cols := []string{r.ID, r.Login, r.URL}
	if show {
		cols = append(cols, r.Password)
	}
	return cols
}

func newRemoveCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rt.openVault()
			if err != nil {
				return err
			}
			if err := v.Remove(args[0]); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newServeCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only web view of the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fsys, err := rt.fs()
			if err != nil {
				return err
			}
			slog.Info("serving vault", "addr", rt.Config.Listen)
			return serveHTTP(cmd.Context(), rt.Config.Listen, web.Handler(web.FileSource{FS: fsys}))
		},
	}
	cmd.Flags().StringVar(&rt.Config.Listen, "listen", rt.Config.Listen, "listen address")
	return cmd
}

func newProxyCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the web view through the offline cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := rt.Config

			origin, err := offline.ParseOrigin(cfg.Origin)
			if err != nil {
				return err
			}
			m, err := offline.LoadManifest(cfg.ManifestPath)
			if err != nil {
				return err
			}
			if err := config.EnsureDataDir(cfg.DataDir); err != nil {
				return err
			}
			store, err := offline.OpenStore(cfg.CachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			c := offline.New(store, m, origin)
			defer c.Flush()

			if err := c.Install(ctx); err != nil {
				return err
			}
			if _, err := c.Activate(ctx); err != nil {
				return err
			}

			slog.Info("serving offline proxy", "addr", cfg.ProxyListen, "origin", origin.String(), "bucket", c.Version())
			return serveHTTP(ctx, cfg.ProxyListen, offline.Proxy(origin, c))
		},
	}
	cmd.Flags().StringVar(&rt.Config.ProxyListen, "listen", rt.Config.ProxyListen, "listen address")
	cmd.Flags().StringVar(&rt.Config.Origin, "origin", rt.Config.Origin, "origin to proxy")
	return cmd
}

// serveHTTP runs h on addr until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
