package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/angelmondragon/rxexchange-backend/pkg/config"
	"github.com/angelmondragon/rxexchange-backend/pkg/db"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands operate on files only; the rest need a Postgres connection.
var offline = map[string]func(options) error{
	"create":   runCreate,
	"validate": runValidate,
}

var online = map[string]func(context.Context, *migrate.Runner, options) error{
	"up":      runUp,
	"down":    runDown,
	"status":  runStatus,
	"version": runVersion,
}

func main() {
	_ = godotenv.Load()

	var opts options
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory; the default uses the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	if fn, ok := offline[*cmd]; ok {
		if err := fn(opts); err != nil {
			fail("%s: %v", *cmd, err)
		}
		return
	}
	fn, ok := online[*cmd]
	if !ok {
		fail("unknown -cmd value %q", *cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "sql handle unavailable", err)
		os.Exit(1)
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(opts.dir))
	if err != nil {
		logg.Error(ctx, "migration runner init failed", err)
		os.Exit(1)
	}

	if err := fn(ctx, runner, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command complete")
}

func runCreate(opts options) error {
	if opts.name == "" {
		return errors.New("missing -name")
	}
	path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
	if err != nil {
		return err
	}
	fmt.Println("created migration:", path)
	return nil
}

func runValidate(opts options) error {
	if err := migrate.ValidateFS(migrate.Source(opts.dir)); err != nil {
		return err
	}
	fmt.Println("migration validation passed")
	return nil
}

func runUp(ctx context.Context, r *migrate.Runner, _ options) error {
	applied, err := r.Up(ctx)
	fmt.Printf("applied %d migration(s)\n", applied)
	return err
}

func runDown(ctx context.Context, r *migrate.Runner, _ options) error {
	return r.Down(ctx)
}

func runStatus(ctx context.Context, r *migrate.Runner, _ options) error {
	lines, err := r.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, l := range lines {
		state := "pending"
		if l.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", l.Version, state, l.Path)
	}
	return w.Flush()
}

func runVersion(ctx context.Context, r *migrate.Runner, opts options) error {
	if opts.version == "" {
		return errors.New("missing -version")
	}
	return r.MigrateTo(ctx, opts.version)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
