package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/service"
	"naspac-portal/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v       *viper.Viper
	cfgFile string
}

// instance is one running client: the local store, the backend and the
// session built on them
type instance struct {
	client *service.Client
	api    *backend.Client
	auth   *service.AuthService
	repo   domain.StorageRepository
}

func (i *instance) Close() error {
	return i.repo.Close()
}

// open starts the client instance. The session is revalidated from the
// stored credential before open returns.
func (a *app) open(ctx context.Context, cmd *cobra.Command) (*instance, error) {
	slog.SetDefault(observability.NewLogger(cmd.ErrOrStderr(), a.v.GetString(keyLogLevel), "text"))

	path := a.v.GetString(keyStore)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	repo, err := repository.Open(ctx, repository.Options{
		Driver:     repository.DriverSQLite,
		SQLitePath: path,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	api := backend.NewClient(a.v.GetString(keyBackendURL), a.v.GetDuration(keyBackendTimeout))
	id := a.v.GetString(keyClient)
	c := service.NewClient(id, repository.Scope(repo, "cli:"+id), api,
		session.WithInitTimeout(a.v.GetDuration(keyInitTimeout)))
	c.Start(ctx)

	if _, err := c.Session().Wait(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	return &instance{client: c, api: api, auth: service.NewAuthService(api, nil), repo: repo}, nil
}

// run opens the instance for fn, then prints the notices raised meanwhile
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, in *instance) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	in, err := a.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer in.Close()

	runErr := fn(ctx, in)
	printNotices(cmd.ErrOrStderr(), in.client.Notices.Drain())
	return runErr
}

func printNotices(w io.Writer, notices []domain.Notice) {
	for _, n := range notices {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}
}

// userMessage turns service errors into what the user should read
func userMessage(err error) error {
	var (
		input *domain.InputError
		auth  *domain.AuthError
		flow  *service.FlowError
	)
	switch {
	case errors.As(err, &input):
		return fmt.Errorf("%s", input.Message)
	case errors.As(err, &auth):
		return fmt.Errorf("%s", auth.Message)
	case errors.As(err, &flow):
		return fmt.Errorf("%s", flow.Message)
	default:
		return err
	}
}
