package repositories

import (
	"context"
	_ "embed"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
)

//go:embed schema.sql
var schema string

// ApplySchema creates the directory and ledger tables if they do not exist.
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	logger.Log.Infow("apply schema", "error", err)
	return err
}

// logQuery logs a statement on a single line with its args, result and error.
func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow("ledger query",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}
