package staging

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Stager persists raw record batches as CSV snapshots and reads them back.
// Snapshots are the fetch-failure fallback: a run that cannot reach the API
// reprocesses the last staged batch instead of aborting.
type Stager struct {
	Store BlobStore
}

func (s *Stager) StageTransactions(ctx context.Context, recs []models.Record) error {
	return s.stage(ctx, KeyTransactions, recs)
}

func (s *Stager) StageRewards(ctx context.Context, recs []models.Record) error {
	return s.stage(ctx, KeyRewards, recs)
}

func (s *Stager) SnapshotTransactions(ctx context.Context) ([]models.Record, error) {
	return s.snapshot(ctx, KeyTransactions)
}

func (s *Stager) SnapshotRewards(ctx context.Context) ([]models.Record, error) {
	return s.snapshot(ctx, KeyRewards)
}

func (s *Stager) stage(ctx context.Context, key string, recs []models.Record) error {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, recs); err != nil {
		return fmt.Errorf("staging: encode %q: %w", key, err)
	}

	return s.Store.Put(ctx, key, &buf)
}

func (s *Stager) snapshot(ctx context.Context, key string) ([]models.Record, error) {
	body, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close() // nolint:errcheck

	recs, err := ReadRecords(body)
	if err != nil {
		return nil, fmt.Errorf("staging: decode %q: %w", key, err)
	}

	return recs, nil
}

// WriteRecords encodes records as CSV. Nested maps are flattened to dotted
// column names (the shape the rest of the pipeline already understands), the
// header is the sorted union of all columns, and nil cells become empty
// strings. The encoding round-trips through ReadRecords with nulls preserved.
func WriteRecords(w io.Writer, recs []models.Record) error {
	flat := make([]map[string]string, 0, len(recs))
	columns := map[string]struct{}{}
	for _, rec := range recs {
		cells := map[string]string{}
		flattenInto(cells, "", map[string]any(rec))
		for col := range cells {
			columns[col] = struct{}{}
		}
		flat = append(flat, cells)
	}

	header := make([]string, 0, len(columns))
	for col := range columns {
		header = append(header, col)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, cells := range flat {
		for i, col := range header {
			row[i] = cells[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadRecords decodes a CSV snapshot. All cells come back as strings; empty
// cells are omitted from the record entirely so they read as null downstream.
func ReadRecords(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []models.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := make(models.Record, len(header))
		for i, col := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			rec[col] = row[i]
		}
		out = append(out, rec)
	}

	return out, nil
}

// flattenInto writes dotted cells for nested maps, mirroring how the raw API
// payloads are normalized into columns.
func flattenInto(cells map[string]string, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case nil:
			// absent cell
		case map[string]any:
			flattenInto(cells, key, val)
		case string:
			cells[key] = val
		case bool:
			cells[key] = strconv.FormatBool(val)
		case float64:
			cells[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case int:
			cells[key] = strconv.Itoa(val)
		case int64:
			cells[key] = strconv.FormatInt(val, 10)
		default:
			// rare shapes (arrays etc.) are kept as JSON so nothing is lost
			if b, err := json.Marshal(val); err == nil {
				cells[key] = string(b)
			}
		}
	}
}
