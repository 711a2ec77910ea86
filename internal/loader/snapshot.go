package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/muzzz404/dld-dubai/internal/logger"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// SnapshotExt is the fixed filename extension for persisted snapshots.
// A source at data/transactions.csv snapshots to data/transactions.snap.
const SnapshotExt = ".snap"

// snapshotVersion is bumped on any incompatible format change.
const snapshotVersion = 1

// snapshot is the on-disk representation: column-major typed arrays with
// a null mask per column, msgpack-encoded and zstd-compressed.
type snapshot struct {
	Version int              `msgpack:"version"`
	Dataset string           `msgpack:"dataset"`
	Rows    int              `msgpack:"rows"`
	Columns []snapshotColumn `msgpack:"columns"`
}

// snapshotColumn holds one field's values. Only the slice matching the
// field type is populated; Nulls marks positions holding null.
type snapshotColumn struct {
	Name     string            `msgpack:"name"`
	Type     dataset.FieldType `msgpack:"type"`
	Nullable bool              `msgpack:"nullable"`
	Nulls    []bool            `msgpack:"nulls"`
	Strings  []string          `msgpack:"strings,omitempty"`
	Numbers  []float64         `msgpack:"numbers,omitempty"`
	Times    []time.Time       `msgpack:"times,omitempty"`
	Bools    []bool            `msgpack:"bools,omitempty"`
}

// SnapshotPath returns the snapshot path for a source, derived from the
// source path by the fixed filename convention.
func SnapshotPath(src Source) string {
	dir := filepath.Dir(src.Path)
	base := filepath.Base(src.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+SnapshotExt)
}

// SaveSnapshot persists a dataset as a compressed columnar snapshot.
func SaveSnapshot(path string, name string, ds *dataset.Dataset) error {
	snap := snapshot{
		Version: snapshotVersion,
		Dataset: name,
		Rows:    ds.Len(),
	}

	for _, f := range ds.Schema().Fields() {
		col := snapshotColumn{
			Name:     f.Name,
			Type:     f.Type,
			Nullable: f.Nullable,
			Nulls:    make([]bool, ds.Len()),
		}
		switch f.Type {
		case dataset.TypeString:
			col.Strings = make([]string, ds.Len())
		case dataset.TypeNumber:
			col.Numbers = make([]float64, ds.Len())
		case dataset.TypeDate:
			col.Times = make([]time.Time, ds.Len())
		case dataset.TypeBool:
			col.Bools = make([]bool, ds.Len())
		}
		for i := 0; i < ds.Len(); i++ {
			v := ds.Value(i, f.Name)
			if v == nil {
				col.Nulls[i] = true
				continue
			}
			switch f.Type {
			case dataset.TypeString:
				col.Strings[i] = v.(string)
			case dataset.TypeNumber:
				col.Numbers[i] = v.(float64)
			case dataset.TypeDate:
				col.Times[i] = v.(time.Time)
			case dataset.TypeBool:
				col.Bools[i] = v.(bool)
			}
		}
		snap.Columns = append(snap.Columns, col)
	}

	encoded, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", name, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	compressed := encoder.EncodeAll(encoded, make([]byte, 0, len(encoded)/2))
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}

	logger.Info("snapshot saved",
		"dataset", name,
		"path", path,
		"rows", snap.Rows,
		"bytes", len(compressed),
	)
	return nil
}

// LoadSnapshot reads a persisted snapshot back into a dataset. The schema
// is rebuilt from the snapshot itself and verified against want (pass the
// zero Schema to skip verification). Any decode or schema failure returns
// ErrSnapshotCorrupt so callers can fall back to re-ingesting the source.
func LoadSnapshot(path string, want dataset.Schema) (*dataset.Dataset, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decompressor: %w", err)
	}
	defer decoder.Close()

	encoded, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %q: %v", ErrSnapshotCorrupt, path, err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(encoded, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrSnapshotCorrupt, path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrSnapshotCorrupt, snap.Version, snapshotVersion)
	}

	fields := make([]dataset.Field, len(snap.Columns))
	for i, col := range snap.Columns {
		fields[i] = dataset.Field{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
	}
	schema, err := dataset.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrSnapshotCorrupt, err)
	}

	if want.Len() > 0 && !schemasEqual(schema, want) {
		return nil, fmt.Errorf("%w: schema does not match declared source schema", ErrSnapshotCorrupt)
	}

	records := make([]dataset.Record, snap.Rows)
	for i := range records {
		records[i] = make(dataset.Record, len(snap.Columns))
	}
	for _, col := range snap.Columns {
		if len(col.Nulls) != snap.Rows || columnLen(col) != snap.Rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrSnapshotCorrupt, col.Name, columnLen(col), snap.Rows)
		}
		for i := 0; i < snap.Rows; i++ {
			if col.Nulls[i] {
				records[i][col.Name] = nil
				continue
			}
			switch col.Type {
			case dataset.TypeString:
				records[i][col.Name] = col.Strings[i]
			case dataset.TypeNumber:
				records[i][col.Name] = col.Numbers[i]
			case dataset.TypeDate:
				records[i][col.Name] = col.Times[i]
			case dataset.TypeBool:
				records[i][col.Name] = col.Bools[i]
			}
		}
	}

	ds, err := dataset.New(schema, records)
	if err != nil {
		return nil, fmt.Errorf("%w: rebuild: %v", ErrSnapshotCorrupt, err)
	}

	logger.Debug("snapshot loaded", "dataset", snap.Dataset, "path", path, "rows", snap.Rows)
	return ds, nil
}

// columnLen returns the length of the value slice matching the column type.
func columnLen(col snapshotColumn) int {
	switch col.Type {
	case dataset.TypeString:
		return len(col.Strings)
	case dataset.TypeNumber:
		return len(col.Numbers)
	case dataset.TypeDate:
		return len(col.Times)
	case dataset.TypeBool:
		return len(col.Bools)
	}
	return -1
}

// schemasEqual compares two schemas field by field, in order.
func schemasEqual(a, b dataset.Schema) bool {
	if a.Len() != b.Len() {
		return false
	}
	af, bf := a.Fields(), b.Fields()
	for i := range af {
		if af[i] != bf[i] {
			return false
		}
	}
	return true
}
