package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/cli/config"
	httpctrl "github.com/secmon-lab/pulsecheck/pkg/controller/http"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/service/generator"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var llmCfg config.LLM
	var classifierCfg config.Classifier
	var authCfg config.Auth
	var slackCfg config.Slack
	var sentryCfg config.Sentry
	var workerCfg config.Worker

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("PULSECHECK_ADDR"),
			Destination: &addr,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, classifierCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, workerCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"repository", repoCfg,
				"llm", llmCfg,
				"classifier", classifierCfg,
				"auth", authCfg,
				"slack", slackCfg,
				"sentry", sentryCfg,
				"worker", workerCfg,
			)

			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}

			riskClassifier, err := classifierCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize risk classifier")
			}

			authUC, err := authCfg.Configure(repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)")
			}
			authUC.OnSignOut(func(ctx context.Context, session *model.Session) {
				logging.From(ctx).Info("account signed out",
					"account_id", session.AccountID,
					"profile_id", session.ProfileID())
			})

			ucOpts := []usecase.Option{
				usecase.WithAuth(authUC),
				usecase.WithClassifier(riskClassifier),
			}

			if llmClient != nil {
				gen, err := generator.New(llmClient)
				if err != nil {
					return goerr.Wrap(err, "failed to initialize question generator")
				}
				ucOpts = append(ucOpts, usecase.WithGenerator(gen))
				logging.Default().Info("Question generation enabled")
			} else {
				logging.Default().Info("LLM provider not configured, questions must be supplied by HR")
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
				logging.Default().Info("Slack risk alerts enabled")
			}

			uc := usecase.New(repo, ucOpts...)

			staleWorker := workerCfg.Configure(repo)
			if staleWorker != nil {
				if err := staleWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start stale analysis worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if staleWorker != nil {
					staleWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if staleWorker != nil {
					staleWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
