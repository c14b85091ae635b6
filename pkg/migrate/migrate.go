package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

// DefaultDir is where new migrations are created, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration set. An empty dir selects the files compiled
// into the binary.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	return os.DirFS(dir), nil
}

// Runner applies migrations through a goose provider. It never closes db.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Commands lists what Run accepts besides "to".
var Commands = []string{"up", "up-by-one", "down", "status"}

// Run executes a named command. "to" additionally needs target.
func (r *Runner) Run(ctx context.Context, command, target string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.report(ctx, results...)
		return err
	case "up-by-one":
		result, err := r.provider.UpByOne(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			r.logg.Info(ctx, "no pending migrations")
			return nil
		}
		r.report(ctx, result)
		return err
	case "down":
		result, err := r.provider.Down(ctx)
		r.report(ctx, result)
		return err
	case "status":
		return r.status(ctx)
	case "to":
		return r.To(ctx, target)
	}
	return fmt.Errorf("unknown migration command %q", command)
}

// To moves the schema up or down until it sits at version.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := ParseVersion(version)
	if err != nil {
		return err
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	case current > target:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(ctx, results...)
	return err
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"version":   res.Source.Version,
			"file":      res.Source.Path,
			"direction": res.Direction,
			"duration":  res.Duration.String(),
		})
		if res.Error != nil {
			r.logg.Error(logCtx, "migration failed", res.Error)
			continue
		}
		r.logg.Info(logCtx, "migration applied")
	}
}
