package pgx

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datapeak/backend/pkg/store"
)

// Store implements store.Storage on top of a pgx connection pool.
type Store struct {
	conn *pgxpool.Pool
}

var (
	_ store.Storage      = (*Store)(nil)
	_ store.GraphWriter  = (*txGraphWriter)(nil)
	_ store.RecordWriter = (*txRecordWriter)(nil)
)

func New(conn *pgxpool.Pool) *Store {
	return &Store{conn: conn}
}
