package main

import (
	"context"
	"time"

	"github.com/theervu-kaanal/grievance-api/internal/bootstrap"
	"github.com/theervu-kaanal/grievance-api/internal/devseed"
)

const defaultMigrationTimeout = 5 * time.Minute

func runMigrate(ctx *commandContext, args []string) error {
	fs := newFlagSet("migrate")
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			ctx.Logger.Error("close database failed", "error", cerr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx.Ctx, *timeout)
	defer cancel()

	return bootstrap.RunMigrations(runCtx, db, ctx.Logger)
}

func runDBSeed(ctx *commandContext, args []string) error {
	fs := newFlagSet("db-seed")
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "seed timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			ctx.Logger.Error("close database failed", "error", cerr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx.Ctx, *timeout)
	defer cancel()

	if err := bootstrap.RunMigrations(runCtx, db, ctx.Logger); err != nil {
		return err
	}

	inserted, err := devseed.Run(runCtx, db, ctx.Logger, devseed.DefaultAccounts())
	if err != nil {
		return err
	}
	ctx.Logger.Info("development seed complete", "inserted", inserted)
	return nil
}
