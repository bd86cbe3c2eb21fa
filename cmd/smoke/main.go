package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/milepost/internal/smoke"
	"github.com/okian/milepost/pkg/logger"
)

// Default run parameters.
const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		fixture = flag.String("fixture", "", "Seed fixture YAML the server was started with")
		trainee = flag.String("trainee", "trainee-1", "Trainee profile id to grade")
		grader  = flag.String("grader", "admin-1", "Grader profile id performing the gradings")
		secret  = flag.String("secret", "", "HMAC secret for signing bearer tokens (empty for auth_disabled servers)")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Enable per-step logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &smoke.Config{
		BaseURL:     *baseURL,
		FixtureFile: *fixture,
		TraineeID:   *trainee,
		GraderID:    *grader,
		AuthSecret:  *secret,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}

	if err := smoke.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		os.Exit(1)
	}
}
