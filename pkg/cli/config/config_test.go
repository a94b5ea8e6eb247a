package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/cli/config"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/repository/memory"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

func TestRepository_Configure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "", "", "").Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pulsecheck.db")
		repo, err := config.NewRepositoryForTest("sqlite", "", "", path).Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())

		_, err = os.Stat(path)
		gt.NoError(t, err)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "", "", "").Configure(t.Context())
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "", "", "").Configure(t.Context())
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mongodb", "", "", "").Configure(t.Context())
		gt.Error(t, err).Is(model.ErrConfiguration)
	})
}

func TestLLM_Configure(t *testing.T) {
	t.Run("returns nil client when provider is empty", func(t *testing.T) {
		client, err := config.NewLLMForTest("", "", "", "").Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	testCases := []struct {
		name     string
		provider string
	}{
		{"gemini without project", "gemini"},
		{"openai without key", "openai"},
		{"claude without key", "claude"},
		{"unknown provider", "llama"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.NewLLMForTest(tc.provider, "", "", "").Configure(t.Context())
			gt.Error(t, err).Is(model.ErrConfiguration)
		})
	}

	t.Run("returns flags", func(t *testing.T) {
		gt.Array(t, config.NewLLMForTest("", "", "", "").Flags()).Length(6)
	})
}

func TestClassifier_Configure(t *testing.T) {
	t.Run("lexical by default", func(t *testing.T) {
		c, err := config.NewClassifierForTest("", "").Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Name()).Equal("lexical")
	})

	t.Run("lexicon file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lexicon.toml")
		gt.NoError(t, os.WriteFile(path, []byte(`high_risk_phrases = ["burned out completely"]`), 0o600)).Required()

		c, err := config.NewClassifierForTest("lexical", path).Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Name()).Equal("lexical")
	})

	t.Run("missing lexicon file", func(t *testing.T) {
		_, err := config.NewClassifierForTest("lexical", filepath.Join(t.TempDir(), "none.toml")).Configure(nil)
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("llm strategy requires a client", func(t *testing.T) {
		_, err := config.NewClassifierForTest("llm", "").Configure(nil)
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := config.NewClassifierForTest("keyword", "").Configure(nil)
		gt.Error(t, err).Is(model.ErrConfiguration)
	})
}

func TestAuth_Configure(t *testing.T) {
	t.Run("no-auth mode", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("", "", true).Configure(memory.New())
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).True()
	})

	t.Run("hmac secret", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("secret", "", false).Configure(memory.New())
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).False()
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := config.NewAuthForTest("", "", false).Configure(memory.New())
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("both key sources", func(t *testing.T) {
		_, err := config.NewAuthForTest("secret", "https://example.com/jwks.json", false).Configure(memory.New())
		gt.Error(t, err).Is(model.ErrConfiguration)
	})
}

func TestSlack_Configure(t *testing.T) {
	t.Run("disabled when unset", func(t *testing.T) {
		n, err := config.NewSlackForTest("", "").Configure()
		gt.NoError(t, err)
		gt.Value(t, n).Nil()
	})

	t.Run("channel without token", func(t *testing.T) {
		_, err := config.NewSlackForTest("", "C0123").Configure()
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("configured", func(t *testing.T) {
		n, err := config.NewSlackForTest("xoxb-test", "C0123").Configure()
		gt.NoError(t, err)
		gt.Value(t, n).NotNil()
	})
}

func TestLogger(t *testing.T) {
	t.Run("parse level", func(t *testing.T) {
		level, err := config.ParseLevel("WARN")
		gt.NoError(t, err)
		gt.Value(t, level).Equal(slog.LevelWarn)

		_, err = config.ParseLevel("verbose")
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("writes json to file", func(t *testing.T) {
		prev := logging.Default()
		t.Cleanup(func() { logging.SetDefault(prev) })

		path := filepath.Join(t.TempDir(), "app.log")
		closer, err := config.NewLoggerForTest("info", "json", path).Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("hello", "key", "value")
		closer()

		raw, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.String(t, string(raw)).Contains(`"msg":"hello"`)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(model.ErrConfiguration)
	})
}

func TestWorker_Configure(t *testing.T) {
	gt.Bool(t, config.NewWorkerForTest(0, time.Minute).Configure(memory.New()) == nil).True()
	gt.Bool(t, config.NewWorkerForTest(time.Second, time.Minute).Configure(memory.New()) != nil).True()
}
