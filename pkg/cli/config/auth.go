package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for bearer token verification
type Auth struct {
	hmacSecret string
	jwksURL    string
	audience   string
	issuer     string

	noAuth      bool
	noAuthID    string
	noAuthName  string
	noAuthEmail string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret for HS256 signed access tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_JWT_SECRET"),
			Destination: &x.hmacSecret,
		},
		&cli.StringFlag{
			Name:        "jwks-url",
			Usage:       "JWKS endpoint of the identity provider",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_JWKS_URL"),
			Destination: &x.jwksURL,
		},
		&cli.StringFlag{
			Name:        "jwt-audience",
			Usage:       "Required audience claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_JWT_AUDIENCE"),
			Destination: &x.audience,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Required issuer claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_JWT_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.BoolFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run every request as one account (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_NO_AUTH"),
			Destination: &x.noAuth,
		},
		&cli.StringFlag{
			Name:        "no-auth-account",
			Usage:       "Account ID used in no-auth mode",
			Category:    "Authentication",
			Value:       "dev-user",
			Sources:     cli.EnvVars("PULSECHECK_NO_AUTH_ACCOUNT"),
			Destination: &x.noAuthID,
		},
		&cli.StringFlag{
			Name:        "no-auth-name",
			Usage:       "Display name used in no-auth mode",
			Category:    "Authentication",
			Value:       "Developer",
			Sources:     cli.EnvVars("PULSECHECK_NO_AUTH_NAME"),
			Destination: &x.noAuthName,
		},
		&cli.StringFlag{
			Name:        "no-auth-email",
			Usage:       "Email used in no-auth mode",
			Category:    "Authentication",
			Sources:     cli.EnvVars("PULSECHECK_NO_AUTH_EMAIL"),
			Destination: &x.noAuthEmail,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt_secret.len", len(x.hmacSecret)),
		slog.String("jwks_url", x.jwksURL),
		slog.String("audience", x.audience),
		slog.String("issuer", x.issuer),
		slog.Bool("no_auth", x.noAuth),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuth
}

// Configure returns the authentication use case. No-auth mode takes
// precedence over token settings.
func (x *Auth) Configure(repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.noAuth {
		if x.hmacSecret != "" || x.jwksURL != "" {
			logging.Default().Warn("--no-auth is set, ignoring --jwt-secret/--jwks-url")
		}
		return usecase.NewNoAuthnUseCase(repo, usecase.NoAuthnAccount{
			AccountID: x.noAuthID,
			Email:     x.noAuthEmail,
			Name:      x.noAuthName,
		}), nil
	}

	if x.hmacSecret == "" && x.jwksURL == "" {
		return nil, goerr.Wrap(model.ErrConfiguration,
			"authentication is required: set --jwt-secret or --jwks-url, or use --no-auth")
	}

	var opts []usecase.AuthOption
	if x.hmacSecret != "" {
		opts = append(opts, usecase.WithHMACSecret(x.hmacSecret))
	}
	if x.jwksURL != "" {
		opts = append(opts, usecase.WithJWKSURL(x.jwksURL))
	}
	if x.audience != "" {
		opts = append(opts, usecase.WithAudience(x.audience))
	}
	if x.issuer != "" {
		opts = append(opts, usecase.WithIssuer(x.issuer))
	}

	authUC, err := usecase.NewAuthUseCase(repo, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure token authentication")
	}
	return authUC, nil
}
