package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// command is one -cmd value. Offline commands never open the database.
type command struct {
	offline bool
	run     func(ctx context.Context, sqlDB *sql.DB, opts options) error
}

var commands = map[string]command{
	"up":     {run: gooseCommand("up")},
	"down":   {run: gooseCommand("down")},
	"status": {run: gooseCommand("status")},
	"version": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		if opts.version == "" {
			return errors.New("-version is required")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	}},
	"create": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) error {
		if opts.name == "" {
			return errors.New("-name is required")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	}},
	"validate": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) error {
		if err := validate(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}},
	"list": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) error {
		files, err := list(opts.dir)
		for _, f := range files {
			fmt.Printf("%d  %s\n", f.Version, f.Name)
		}
		return err
	}},
}

func gooseCommand(name string) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, name)
	}
}

func validate(dir string) error {
	if dir == "" {
		_, err := migrate.ValidateFS(migrate.Embedded, migrate.EmbeddedDir)
		return err
	}
	return migrate.ValidateDir(dir)
}

func list(dir string) ([]migrate.File, error) {
	if dir == "" {
		return migrate.ValidateFS(migrate.Embedded, migrate.EmbeddedDir)
	}
	return migrate.ValidateFS(os.DirFS(dir), ".")
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory (empty uses the embedded set)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (want %s)\n", *cmdName, commandNames())
		os.Exit(2)
	}

	if cmd.offline {
		if err := cmd.run(context.Background(), nil, opts); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmdName, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	exitOn(context.Background(), logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmdName,
		"dir": opts.dir,
	})

	if cfg.FeatureFlags.UseSQLite {
		fmt.Fprintln(os.Stderr, "goose migrations target Postgres; sqlite schemas are bootstrapped by the api with BOOKSTALL_AUTO_MIGRATE")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, false, logg)
	exitOn(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	if err := cmd.run(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, *cmdName+" failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

func exitOn(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
