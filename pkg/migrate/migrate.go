package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// Run validates dir and applies one goose command against Postgres:
// up, down, status, or "version <YYYYMMDDHHMMSS>" which moves up or down
// to that version.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := ValidateDir(dir); err != nil {
		return err
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if command != "version" {
		if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	}

	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("version requires a target (YYYYMMDDHHMMSS)")
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < target:
		err = goose.UpToContext(ctx, db, dir, target)
	case current > target:
		err = goose.DownToContext(ctx, db, dir, target)
	}
	if err != nil {
		return fmt.Errorf("goose version %d -> %d: %w", current, target, err)
	}
	return nil
}

// UseLogger routes goose progress lines through the service logger.
func UseLogger(ctx context.Context, logg *logger.Logger) {
	if logg == nil {
		return
	}
	goose.SetLogger(gooseLogger{ctx: ctx, logg: logg})
}

type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logg.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logg.Error(g.ctx, "goose fatal", errors.New(strings.TrimSpace(fmt.Sprintf(format, v...))))
	os.Exit(1)
}
