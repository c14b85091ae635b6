package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/db"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "one of "+strings.Join(append(slices.Clone(migrate.Commands), "to", "create", "validate"), "|"))
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (default: embedded set; "+migrate.DefaultDir+" for create/validate)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=to")
	flag.Parse()

	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(dirOr(opts.dir, migrate.DefaultDir), opts.name)
		if err != nil {
			exitf("create: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(dirOr(opts.dir, migrate.DefaultDir)); err != nil {
			exitf("validate:\n%v", err)
		}
		fmt.Println("migrations ok")
		return
	}
	if opts.cmd != "to" && !slices.Contains(migrate.Commands, opts.cmd) {
		exitf("unknown -cmd %q", opts.cmd)
	}
	if opts.cmd == "to" && opts.version == "" {
		exitf("-cmd=to needs -version")
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	fsys, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}
	return runner.Run(ctx, opts.cmd, opts.version)
}

func dirOr(dir, fallback string) string {
	if dir == "" {
		return fallback
	}
	return dir
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
