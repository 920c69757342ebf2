package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		fail(context.Background(), logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fail(ctx, logg, "create", fmt.Errorf("-name is required"))
		}
		path, err := migrate.NewMigration(*dir, *name, time.Now())
		if err != nil {
			fail(ctx, logg, "create", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(ctx, logg, "validate", err)
		}
		if err := migrate.CheckSQLiteParity(*dir); err != nil {
			fail(ctx, logg, "validate", err)
		}
		logg.Info(ctx, "migrations valid")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		fail(ctx, logg, "connect database", err)
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.UseSQLite {
		if *cmd != "up" {
			fail(ctx, logg, "sqlite", fmt.Errorf("sqlite mode only supports -cmd=up, got %q", *cmd))
		}
		if err := migrate.ApplySQLiteSchema(dbClient.DB()); err != nil {
			fail(ctx, logg, "sqlite schema", err)
		}
		logg.Info(ctx, "sqlite schema applied")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "sql handle", err)
	}
	var args []string
	if *cmd == "version" {
		args = append(args, *version)
	}
	migrate.UseLogger(ctx, logg)
	if err := migrate.Run(ctx, sqlDB, *dir, *cmd, args...); err != nil {
		fail(ctx, logg, *cmd, err)
	}
	logg.Info(ctx, "migrate finished")
}

func fail(ctx context.Context, logg *logger.Logger, step string, err error) {
	logg.Error(logg.WithField(ctx, "step", step), "migrate failed", err)
	os.Exit(1)
}
