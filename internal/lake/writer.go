// Package lake publishes the joined table as a partitioned columnar dataset
// and derives the catalog schema from what was written. DuckDB does the heavy
// lifting for both: parquet encoding on the way out, DESCRIBE on the way back.
package lake

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	duckdb "github.com/duckdb/duckdb-go/v2"
	"github.com/shopspring/decimal"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// DatasetName is the directory the partitioned parquet files live under,
// relative to the writer's output root.
const DatasetName = "datawarehouse/transformed_data.parquet"

const stagingTable = "joined"

// partitionColumn must stay last in the staging table: hive partitioning
// moves it into the directory name.
const partitionColumn = "transaction_date"

// Writer publishes joined rows as snappy parquet partitioned by calendar day.
// Each publish fully replaces the dataset, matching the recompute-everything
// lifecycle of the joined output.
type Writer struct {
	root string // data root holding the dataset directory
}

func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Dir returns the dataset directory.
func (w *Writer) Dir() string {
	return filepath.Join(w.root, filepath.FromSlash(DatasetName))
}

// Publish writes the batch. The previous dataset is removed first so stale
// partitions never survive a shrinking batch.
func (w *Writer) Publish(ctx context.Context, rows []models.JoinedRow) error {
	dir := w.Dir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("lake: clear dataset: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("lake: create dataset dir: %w", err)
	}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return fmt.Errorf("lake: duckdb connector: %w", err)
	}
	defer connector.Close() // nolint:errcheck

	db := sql.OpenDB(connector)
	defer db.Close() // nolint:errcheck

	if _, err := db.ExecContext(ctx, createStagingTable); err != nil {
		return fmt.Errorf("lake: create staging table: %w", err)
	}

	if err := appendRows(ctx, connector, rows); err != nil {
		return err
	}

	copyStmt := fmt.Sprintf(
		`COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET, COMPRESSION SNAPPY, PARTITION_BY (%s), OVERWRITE_OR_IGNORE 1)`,
		stagingTable, strings.ReplaceAll(dir, "'", "''"), partitionColumn,
	)
	if _, err := db.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("lake: copy to parquet: %w", err)
	}

	return nil
}

const createStagingTable = `
CREATE TABLE joined (
	reward_id             VARCHAR NOT NULL,
	transaction_id        VARCHAR,
	description           VARCHAR,
	plu_amount            DOUBLE,
	transaction_timestamp TIMESTAMP,
	available             BOOLEAN,
	reason                VARCHAR,
	created_at            TIMESTAMP,
	updated_at            TIMESTAMP,
	rebate_rate           DOUBLE,
	fiat_amount_rewarded  DOUBLE,
	currency              VARCHAR,
	reference_type        VARCHAR,
	reward_type           VARCHAR,
	transaction_amount    DOUBLE,
	plu_price             DOUBLE,
	unpriced              BOOLEAN,
	transaction_date      VARCHAR
)`

// appendRows bulk-loads the staging table through the native appender, the
// fastest insert path duckdb offers.
func appendRows(ctx context.Context, connector *duckdb.Connector, rows []models.JoinedRow) error {
	conn, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("lake: duckdb connect: %w", err)
	}
	defer conn.Close() // nolint:errcheck

	duckConn, ok := conn.(*duckdb.Conn)
	if !ok {
		return fmt.Errorf("lake: unexpected driver connection %T", conn)
	}

	appender, err := duckdb.NewAppenderFromConn(duckConn, "", stagingTable)
	if err != nil {
		return fmt.Errorf("lake: appender: %w", err)
	}

	for _, row := range rows {
		err := appender.AppendRow(
			row.RewardID,
			nullString(row.TransactionID),
			nullString(row.Description),
			nullFloat(row.PluAmount),
			nullTime(row.TransactionTS),
			nullBool(row.Available),
			nullString(row.Reason),
			nullTime(row.CreatedAt),
			nullTime(row.UpdatedAt),
			nullFloat(row.RebateRate),
			nullFloat(row.FiatAmount),
			nullString(row.Currency),
			nullString(row.ReferenceType),
			row.RewardType,
			nullFloat(row.TransactionAmount),
			nullFloat(row.PluPrice),
			row.Unpriced,
			partitionValue(row),
		)
		if err != nil {
			_ = appender.Close()
			return fmt.Errorf("lake: append row %s: %w", row.RewardID, err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("lake: flush appender: %w", err)
	}

	return nil
}

// partitionValue renders the calendar-day partition. Rows without a
// transaction timestamp land in a literal "__null__" partition so a left-join
// miss never breaks the publish.
func partitionValue(row models.JoinedRow) string {
	if d := row.TransactionDate(); d != "" {
		return d
	}
	return "__null__"
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.InexactFloat64()
}
