package config

import "time"

func NewRepositoryForTest(backend, projectID, postgresDSN, sqlitePath string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		postgreDSN: postgresDSN,
		sqlitePath: sqlitePath,
	}
}

func NewLLMForTest(provider, geminiProject, openaiKey, claudeKey string) *LLM {
	return &LLM{
		provider:      provider,
		geminiProject: geminiProject,
		openaiAPIKey:  openaiKey,
		claudeAPIKey:  claudeKey,
	}
}

func NewClassifierForTest(strategy, lexiconPath string) *Classifier {
	return &Classifier{strategy: strategy, lexiconPath: lexiconPath}
}

func NewAuthForTest(secret, jwksURL string, noAuth bool) *Auth {
	return &Auth{
		hmacSecret: secret,
		jwksURL:    jwksURL,
		noAuth:     noAuth,
		noAuthID:   "dev-user",
		noAuthName: "Developer",
	}
}

func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{botToken: botToken, channelID: channelID}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewWorkerForTest(interval, timeout time.Duration) *Worker {
	return &Worker{interval: interval, timeout: timeout}
}

var ParseLevel = parseLevel
