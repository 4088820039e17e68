// Command loadtest runs one concurrency test against the configured
// database and prints the report.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/config"
	"github.com/iliyamo/seat-reservation-engine/internal/database"
	"github.com/iliyamo/seat-reservation-engine/internal/harness"
	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

func main() {
	var (
		envFile = pflag.String("env-file", ".env", "optional dotenv file")
		actors  = pflag.IntP("users", "u", harness.DefaultActors, "number of synthetic actors (max 500)")
		seats   = pflag.IntP("seats", "s", harness.DefaultSeats, "number of synthetic seats (max 20)")
		seed    = pflag.Int64("rand-seed", 0, "seat selection seed; 0 picks one from the clock")
		timeout = pflag.Duration("timeout", 2*time.Minute, "abort the run after this long")
	)
	pflag.Parse()

	cfg := config.Load(*envFile)
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	h := harness.New(repository.NewTestRunRepo(db), broadcast.Nop{}, cfg.TestRunTTL, 0, log)
	if *seed != 0 {
		h.Seed(*seed)
	}
	rep, err := h.Run(ctx, *actors, *seats)
	if err != nil {
		log.WithError(err).Fatal("test run failed")
	}
	log.WithFields(logrus.Fields{
		"run_id":    rep.RunID,
		"succeeded": rep.SuccessfulBookings,
		"failed":    rep.FailedAttempts,
	}).Info("done")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
}
