package rdb

// NewForTest creates an RDB without a connection for query helpers
func NewForTest(dialect Dialect) *RDB {
	return &RDB{dialect: dialect}
}

func (r *RDB) Rebind(query string) string {
	return r.rebind(query)
}
