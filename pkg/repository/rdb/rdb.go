// Package rdb implements the repository on a relational database. Postgres
// (for hosted deployments) and SQLite (embedded) share the same schema and
// queries; placeholders are written as '?' and rebound per dialect.
package rdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/utils/safe"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type RDB struct {
	db      *sql.DB
	dialect Dialect

	userProfile *userProfileRepository
	questionSet *questionSetRepository
	question    *questionRepository
	history     *historyRepository
}

var _ interfaces.Repository = &RDB{}

// New opens the database and creates missing tables.
func New(ctx context.Context, dialect Dialect, dsn string) (*RDB, error) {
	var driver string
	switch dialect {
	case DialectPostgres:
		driver = "postgres"
	case DialectSQLite:
		driver = "sqlite"
	default:
		return nil, goerr.New("unsupported SQL dialect", goerr.V("dialect", dialect))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("dialect", dialect))
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		// between concurrent transactions of this process.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		safe.Close(ctx, db, "database")
		return nil, goerr.Wrap(err, "failed to connect database", goerr.V("dialect", dialect))
	}

	r := &RDB{db: db, dialect: dialect}
	if err := r.bootstrap(ctx); err != nil {
		safe.Close(ctx, db, "database")
		return nil, err
	}

	r.userProfile = &userProfileRepository{r: r}
	r.questionSet = &questionSetRepository{r: r}
	r.question = &questionRepository{r: r}
	r.history = &historyRepository{r: r}
	return r, nil
}

// OpenSQLite opens a SQLite database file with WAL journaling and foreign keys.
func OpenSQLite(ctx context.Context, path string) (*RDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, goerr.New("sqlite path is required")
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	return New(ctx, DialectSQLite, dsn)
}

func (r *RDB) UserProfile() interfaces.UserProfileRepository {
	return r.userProfile
}

func (r *RDB) QuestionSet() interfaces.QuestionSetRepository {
	return r.questionSet
}

func (r *RDB) Question() interfaces.QuestionRepository {
	return r.question
}

func (r *RDB) History() interfaces.QuestionHistoryRepository {
	return r.history
}

func (r *RDB) Close() error {
	return r.db.Close()
}

// rebind rewrites '?' placeholders into '$n' for Postgres.
func (r *RDB) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// forUpdate returns the row lock clause. SQLite transactions are opened
// with an immediate lock and need none.
func (r *RDB) forUpdate() string {
	if r.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (r *RDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer safe.Rollback(ctx, tx.Rollback, sql.ErrTxDone)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// now returns the current time truncated to the stored precision so that
// returned entities compare equal to what is read back later.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
