package lake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"github.com/dmaliar/cashback-pipeline/internal/warehouse"
)

// Crawl inspects the published dataset and produces the schema-registry entry
// the warehouse loader derives its DDL from. The partition column is read
// back from the hive directory layout and reported as a partition key, the
// way the upstream data catalog would.
func (w *Writer) Crawl(ctx context.Context, database string, table string) (warehouse.TableSchema, error) {
	schema := warehouse.TableSchema{Database: database, Table: table}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return schema, fmt.Errorf("lake: duckdb connector: %w", err)
	}
	defer connector.Close() // nolint:errcheck

	db := sql.OpenDB(connector)
	defer db.Close() // nolint:errcheck

	glob := strings.ReplaceAll(w.Dir(), "'", "''") + "/**/*.parquet"
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`DESCRIBE SELECT * FROM read_parquet('%s', hive_partitioning = 1)`, glob,
	))
	if err != nil {
		return schema, fmt.Errorf("lake: describe dataset: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	for rows.Next() {
		var (
			name, columnType      string
			null, key, def, extra sql.NullString
		)
		if err := rows.Scan(&name, &columnType, &null, &key, &def, &extra); err != nil {
			return schema, fmt.Errorf("lake: scan describe row: %w", err)
		}

		col := warehouse.Column{Name: name, Type: coarseType(columnType)}
		if name == partitionColumn {
			schema.PartitionKeys = append(schema.PartitionKeys, col)
			continue
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return schema, fmt.Errorf("lake: describe dataset: %w", err)
	}

	return schema, nil
}

// coarseType maps a duckdb column type to the registry's coarse type set.
func coarseType(duckType string) string {
	switch strings.ToUpper(duckType) {
	case "TINYINT", "SMALLINT", "INTEGER":
		return warehouse.TypeInt
	case "BIGINT", "HUGEINT", "UBIGINT":
		return warehouse.TypeBigInt
	case "FLOAT", "DOUBLE":
		return warehouse.TypeDouble
	case "BOOLEAN":
		return warehouse.TypeBoolean
	case "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "DATE":
		return warehouse.TypeTimestamp
	default:
		return warehouse.TypeString
	}
}
