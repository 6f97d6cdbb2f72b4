// Command migrate applies or inspects the embedded schema migrations.
//
//	migrate [up|down|status|version|redo|reset|up-to N|down-to N]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/db"
	"github.com/geocoder89/userauth/internal/observability"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|status|version|redo|reset|up-to N|down-to N]")
	}
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, cfg.ServiceName)

	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Error("migrations need STORE_DRIVER=postgres", "store", cfg.StoreDriver)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, db.WithMaxConns(cfg.DBMaxConns), db.WithApplicationName(cfg.ServiceName))
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, command, args...); err != nil {
		log.Error("migration failed", "command", command, "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration finished", "command", command)
}
