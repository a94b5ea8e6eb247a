package rdb_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/repository/rdb"
)

func TestRebind(t *testing.T) {
	const query = `UPDATE question_sets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	t.Run("postgres uses numbered placeholders", func(t *testing.T) {
		got := rdb.NewForTest(rdb.DialectPostgres).Rebind(query)
		gt.Value(t, got).Equal(`UPDATE question_sets SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`)
	})

	t.Run("sqlite keeps question marks", func(t *testing.T) {
		got := rdb.NewForTest(rdb.DialectSQLite).Rebind(query)
		gt.Value(t, got).Equal(query)
	})
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := rdb.OpenSQLite(t.Context(), " ")
	gt.Error(t, err)
}
