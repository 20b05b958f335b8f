package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/savegress/hospitalfin/internal/access"
	"github.com/savegress/hospitalfin/internal/audit"
	"github.com/savegress/hospitalfin/internal/auth"
	"github.com/savegress/hospitalfin/internal/catalog"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/internal/dataset"
	"github.com/savegress/hospitalfin/internal/entitlement"
	"github.com/savegress/hospitalfin/pkg/models"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const (
	exitAuth     = 2
	exitDenied   = 3
	exitNotFound = 4
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// globalFlags holds flags shared by every command.
type globalFlags struct {
	configPath string
	email      string
	password   string
	token      string
}

func main() {
	root := newRootCommand(os.Stdout)
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var flags globalFlags
	var hospital string
	var year int

	root := &cobra.Command{
		Use:           "hospitalfin",
		Short:         "Query synthetic hospital financial data",
		Long:          "hospitalfin generates a reproducible catalog of hospital financial records and serves them to signed-in users according to their role.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", os.Getenv("HOSPITALFIN_CONFIG"), "Path to YAML config (defaults to environment)")
	pf.StringVar(&flags.email, "email", os.Getenv("HOSPITALFIN_EMAIL"), "Sign-in email")
	pf.StringVar(&flags.password, "password", os.Getenv("HOSPITALFIN_PASSWORD"), "Sign-in password")
	pf.StringVar(&flags.token, "token", os.Getenv("HOSPITALFIN_TOKEN"), "Session token issued by the token command")

	hospitalsCmd := &cobra.Command{
		Use:   "hospitals",
		Short: "List the hospitals you may view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, p, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			return writeJSON(out, a.facade.Hospitals(p))
		},
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Show the financial record for one hospital and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, p, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			return runFetch(cmd.Context(), out, a, p, hospital, a.year(year))
		},
	}
	fetchCmd.Flags().StringVar(&hospital, "hospital", "", "Hospital id")
	fetchCmd.Flags().IntVar(&year, "year", 0, "Fiscal year (defaults to the latest)")
	fetchCmd.MarkFlagRequired("hospital")

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarize every hospital you may view for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, p, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			ov, err := a.facade.Overview(cmd.Context(), p, a.year(year))
			if err != nil {
				return accessError(err)
			}
			return writeJSON(out, ov)
		},
	}
	overviewCmd.Flags().IntVar(&year, "year", 0, "Fiscal year (defaults to the latest)")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, p, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			token, err := a.issuer.Issue(p)
			if err != nil {
				return err
			}
			return writeJSON(out, map[string]interface{}{
				"token":      token,
				"expires_in": int(a.cfg.Auth.TokenTTL.Seconds()),
				"principal":  p,
			})
		},
	}

	root.AddCommand(hospitalsCmd, fetchCmd, overviewCmd, tokenCmd)
	return root
}

// app wires the dataset engine for one invocation
type app struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	facade  *access.Facade
	session *auth.Session
	issuer  *auth.Issuer
	audit   *audit.Logger
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv(), nil
	}
	return config.Load(path)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	periods := make([]models.Period, len(cfg.Catalog.Years))
	for i, y := range cfg.Catalog.Years {
		periods[i] = models.Period(y)
	}

	asm := dataset.NewAssembler(&cfg.Catalog, cfg.Events)
	cat, err := catalog.Build(ctx, asm, cfg.Hospitals, periods, catalog.Options{Workers: cfg.Catalog.Workers})
	if err != nil {
		return nil, err
	}

	dir, err := auth.NewDirectory(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewIssuer(&cfg.Auth)
	if err != nil {
		return nil, err
	}

	auditLog := audit.NewLogger(&cfg.Audit)
	if err := auditLog.Start(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		catalog: cat,
		facade:  access.NewFacade(entitlement.NewModel(cat.EntityIDs()), cat, auditLog),
		session: auth.NewSession(dir),
		issuer:  issuer,
		audit:   auditLog,
	}, nil
}

func (a *app) close() {
	a.audit.Stop()
	stats := a.audit.Stats()
	if n := stats.ByOutcome[audit.OutcomeDenied]; n > 0 {
		log.Printf("Audit: %d decisions, %d denied", stats.TotalEvents, n)
	}
}

// year resolves 0 to the latest catalog year
func (a *app) year(y int) models.Period {
	if y != 0 {
		return models.Period(y)
	}
	periods := a.catalog.Periods()
	if len(periods) == 0 {
		return 0
	}
	return periods[len(periods)-1]
}

// signIn resolves the principal from a token or from email and password
func (a *app) signIn(flags globalFlags) (*models.Principal, error) {
	if flags.token != "" {
		p, err := a.issuer.Parse(flags.token)
		if err != nil {
			return nil, codeError(exitAuth, "%s", err)
		}
		return p, nil
	}
	if flags.email == "" || flags.password == "" {
		return nil, codeError(exitAuth, "sign in with --email and --password, or pass --token")
	}
	p, err := a.session.SignIn(flags.email, flags.password)
	if err != nil {
		return nil, codeError(exitAuth, "%s", err)
	}
	return p, nil
}

func setup(ctx context.Context, flags globalFlags) (*app, *models.Principal, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.signIn(flags)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, p, nil
}

func runFetch(ctx context.Context, out io.Writer, a *app, p *models.Principal, hospital string, year models.Period) error {
	rec, err := a.facade.Fetch(ctx, p, hospital, year)
	if err != nil {
		return accessError(err)
	}
	return writeJSON(out, rec)
}

// accessError maps facade errors to exit codes
func accessError(err error) error {
	switch {
	case errors.Is(err, access.ErrDenied):
		return codeError(exitDenied, "%s", err)
	case errors.Is(err, access.ErrNotFound):
		return codeError(exitNotFound, "%s", err)
	default:
		return err
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
