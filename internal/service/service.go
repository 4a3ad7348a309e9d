package service

import "database/sql"

// TxRunner runs a function inside a database transaction. *database.DB
// satisfies it; tests substitute a runner that passes a nil transaction
// to fake repositories.
type TxRunner interface {
	ExecuteInTransaction(fn func(tx *sql.Tx) error) error
}
