package warehouse

import (
	"fmt"
	"strings"
)

// Coarse catalog column types, as the schema registry reports them.
const (
	TypeInt       = "int"
	TypeBigInt    = "bigint"
	TypeString    = "string"
	TypeDouble    = "double"
	TypeBoolean   = "boolean"
	TypeTimestamp = "timestamp"
)

// ddlTypes maps coarse catalog types to warehouse column types. Anything the
// map does not know loads as a bounded string instead of failing the run.
var ddlTypes = map[string]string{
	TypeInt:       "INTEGER",
	TypeBigInt:    "BIGINT",
	TypeString:    "VARCHAR(256)",
	TypeDouble:    "DOUBLE PRECISION",
	TypeBoolean:   "BOOLEAN",
	TypeTimestamp: "TIMESTAMP",
}

const defaultDDLType = "VARCHAR(256)"

// Column is one catalog column: name plus coarse type.
type Column struct {
	Name string
	Type string
}

// TableSchema is one schema-registry entry. Partition key columns are listed
// separately, as the registry keeps them out of the regular column list.
type TableSchema struct {
	Database string
	Table    string

	Columns       []Column
	PartitionKeys []Column
}

// AllColumns returns regular columns followed by partition keys: the
// partition columns become ordinary columns in the warehouse table.
func (s TableSchema) AllColumns() []Column {
	out := make([]Column, 0, len(s.Columns)+len(s.PartitionKeys))
	out = append(out, s.Columns...)
	out = append(out, s.PartitionKeys...)
	return out
}

// ColumnNames returns the names of AllColumns in order.
func (s TableSchema) ColumnNames() []string {
	cols := s.AllColumns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// ColumnDDL renders the column list of a CREATE TABLE statement for this
// schema entry.
func (s TableSchema) ColumnDDL() string {
	parts := make([]string, 0, len(s.Columns)+len(s.PartitionKeys))
	for _, col := range s.AllColumns() {
		ddlType, ok := ddlTypes[strings.ToLower(col.Type)]
		if !ok {
			ddlType = defaultDDLType
		}
		parts = append(parts, fmt.Sprintf("%s %s", col.Name, ddlType))
	}

	return strings.Join(parts, ", ")
}
