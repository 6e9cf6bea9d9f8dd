// Command opdctl is the terminal front desk for the OPD API: login, the
// day's queue, visit drafting, billing, staff, option settings and
// printing.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/apiclient"
	"github.com/jwalitptl/opd-desk/internal/clientconfig"
	"github.com/jwalitptl/opd-desk/internal/confirm"
	"github.com/jwalitptl/opd-desk/internal/refdata"
	"github.com/jwalitptl/opd-desk/internal/session"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/logger"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

// app carries what every command needs. Fields are filled lazily in
// setup so --help works without a config.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *clientconfig.Config
	session *session.Store
	client  *apiclient.Client
	vocab   *refdata.Cache
	yes     bool
}

func main() {
	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		a.report(err)
		stop()
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opdctl",
		Short:         "OPD front desk in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		a.loginCmd(), a.logoutCmd(), a.whoamiCmd(),
		a.queueCmd(), a.visitCmd(), a.invoiceCmd(), a.optionsCmd(), a.printCmd(),
		a.usersCmd(), a.clinicCmd(),
	)
	return root
}

func (a *app) setup() error {
	if a.cfg == nil {
		cfg, err := clientconfig.Load()
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	logger.NewLogger(&logger.Config{Level: a.cfg.Level(), TimeFormat: time.Kitchen, Output: a.errOut}).SetGlobal()

	var sealer security.Encryptor
	if a.cfg.SessionKey != "" {
		var err error
		if sealer, err = security.NewPassphraseEncryptor(a.cfg.SessionKey); err != nil {
			return fmt.Errorf("invalid session key: %w", err)
		}
	}
	store, err := session.Open(a.cfg.SessionFile, sealer)
	if err != nil {
		return err
	}
	a.session = store
	a.client = apiclient.New(a.cfg.APIURL, store, apiclient.WithTimeout(a.cfg.Timeout))
	a.vocab = refdata.New(a.client, a.cfg.CacheTTL)
	return nil
}

func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return errors.New("not logged in, run `opdctl login` first")
	}
	return nil
}

func (a *app) prompter() confirm.Prompter {
	if a.yes {
		return confirm.Always(true)
	}
	return confirm.NewLinePrompter(a.in, a.out)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// report prints err the way a toast would: message first, then field
// errors one per line.
func (a *app) report(err error) {
	var (
		reqErr *apiclient.RequestError
		verrs  apperrors.ValidationErrors
	)
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		fmt.Fprintln(a.errOut, "error:", err)
	case errors.As(err, &verrs):
		for _, v := range verrs {
			fmt.Fprintf(a.errOut, "error: %s: %s\n", v.Field, v.Message)
		}
	case errors.As(err, &reqErr):
		fmt.Fprintln(a.errOut, "error:", reqErr.Message)
		for _, f := range reqErr.Fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", f.Field, f.Message)
		}
	default:
		fmt.Fprintln(a.errOut, "error:", err)
	}
}
