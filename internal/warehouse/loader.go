package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dmaliar/cashback-pipeline/internal/apperrors"
	"github.com/dmaliar/cashback-pipeline/internal/models"
)

const loadBatchTable = "load_batch"

// Loader merges joined rows into the warehouse table.
//
// The whole load runs in one transaction: ensure the target table exists,
// copy the batch into a temp table, then insert the rows whose key is not
// already present. Any failure rolls the whole batch back, so a retried run
// sees the table as it was before.
type Loader struct {
	DB    DBTX
	Table string // fully qualified target table, e.g. "public.cashback"
	Key   string // dedup key column, must be present in the schema
}

func (l *Loader) Load(ctx context.Context, schema TableSchema, rows []models.JoinedRow) (inserted int64, err error) {
	if len(rows) == 0 {
		return 0, apperrors.ErrEmptyBatch
	}
	if err := l.checkKey(schema); err != nil {
		return 0, err
	}

	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", l.Table, schema.ColumnDDL()))
	if err != nil {
		return 0, fmt.Errorf("create target table: %w", err)
	}

	// Temp table copies the target's layout so the merge below compares
	// like with like even when the target predates this schema. A leftover
	// from an earlier load on the same session is dropped first.
	_, err = tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS pg_temp.%s", loadBatchTable))
	if err != nil {
		return 0, fmt.Errorf("drop stale batch table: %w", err)
	}
	_, err = tx.Exec(ctx, fmt.Sprintf("CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT * FROM %s WHERE FALSE", loadBatchTable, l.Table))
	if err != nil {
		return 0, fmt.Errorf("create batch table: %w", err)
	}

	names := schema.ColumnNames()
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		vals, err := columnValues(row, names)
		if err != nil {
			return 0, err
		}
		values = append(values, vals)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{loadBatchTable}, names, pgx.CopyFromRows(values))
	if err != nil {
		return 0, fmt.Errorf("copy batch: %w", err)
	}

	merge := fmt.Sprintf(
		"INSERT INTO %[1]s SELECT * FROM %[2]s b WHERE NOT EXISTS (SELECT 1 FROM %[1]s t WHERE t.%[3]s = b.%[3]s)",
		l.Table, loadBatchTable, l.Key,
	)
	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		// Overlapping merges race on the NOT EXISTS check and trip the
		// target's constraints. Scheduling is supposed to prevent this.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrConcurrentLoad, pgErr.Message)
		}
		return 0, fmt.Errorf("merge batch: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (l *Loader) checkKey(schema TableSchema) error {
	for _, name := range schema.ColumnNames() {
		if name == l.Key {
			return nil
		}
	}
	return fmt.Errorf("%w: key column %q", apperrors.ErrUnknownColumn, l.Key)
}

// columnValues renders one joined row in the given column order. Unknown
// column names fail the load before anything is written.
func columnValues(row models.JoinedRow, names []string) ([]any, error) {
	out := make([]any, len(names))
	for i, name := range names {
		val, err := columnValue(row, name)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func columnValue(row models.JoinedRow, name string) (any, error) {
	switch name {
	case "reward_id", "id":
		return row.RewardID, nil
	case "transaction_id":
		return strValue(row.TransactionID), nil
	case "description":
		return strValue(row.Description), nil
	case "plu_amount":
		return decValue(row.PluAmount), nil
	case "transaction_date":
		if row.TransactionTS == nil {
			return nil, nil
		}
		return row.TransactionDate(), nil
	case "transaction_timestamp":
		return timeValue(row.TransactionTS), nil
	case "available":
		if row.Available == nil {
			return nil, nil
		}
		return *row.Available, nil
	case "reason":
		return strValue(row.Reason), nil
	case "created_at":
		return timeValue(row.CreatedAt), nil
	case "updated_at":
		return timeValue(row.UpdatedAt), nil
	case "rebate_rate":
		return decValue(row.RebateRate), nil
	case "fiat_amount_rewarded":
		return decValue(row.FiatAmount), nil
	case "currency":
		return strValue(row.Currency), nil
	case "reference_type":
		return strValue(row.ReferenceType), nil
	case "reward_type":
		return row.RewardType, nil
	case "transaction_amount":
		return decValue(row.TransactionAmount), nil
	case "plu_price":
		return decValue(row.PluPrice), nil
	case "unpriced":
		return row.Unpriced, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownColumn, name)
}

func strValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func decValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
