package sqlstore

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
)

// encodeValues converts a record's field values into column values.
// Booleans become 0/1 and string lists become JSON text; everything else
// is bound as is.
func encodeValues(fields []collection.Field, values []any) ([]any, error) {
	if len(fields) != len(values) {
		return nil, fmt.Errorf("sqlstore: %d values for %d fields", len(values), len(fields))
	}
	out := make([]any, len(values))
	for i, f := range fields {
		switch f.Type {
		case collection.Bool:
			b, _ := values[i].(bool)
			if b {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		case collection.StringList:
			list, _ := values[i].([]string)
			if list == nil {
				list = []string{}
			}
			raw, err := json.Marshal(list)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: encoding %s: %w", f.Column, err)
			}
			out[i] = string(raw)
		default:
			out[i] = values[i]
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one `SELECT id, <columns>` row into a fresh record of
// the given kind and stamps it with owner.
func scanRecord(row scanner, kind collection.Kind, owner string) (model.Record, error) {
	rec := kind.New()
	fields := kind.Schema().Fields
	targets := rec.Targets()

	var id string
	dest := make([]any, 0, len(fields)+1)
	dest = append(dest, &id)

	holders := make([]any, len(fields))
	for i, f := range fields {
		switch f.Type {
		case collection.Bool:
			holders[i] = new(int64)
		case collection.StringList:
			holders[i] = new(string)
		default:
			holders[i] = targets[i]
		}
		dest = append(dest, holders[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, f := range fields {
		switch f.Type {
		case collection.Bool:
			*(targets[i].(*bool)) = *(holders[i].(*int64)) != 0
		case collection.StringList:
			list, err := decodeList(*(holders[i].(*string)))
			if err != nil {
				return nil, fmt.Errorf("sqlstore: decoding %s.%s: %w", kind, f.Column, err)
			}
			*(targets[i].(*[]string)) = list
		}
	}

	rec.SetRecordID(id)
	rec.SetOwner(owner)
	return rec, nil
}

func decodeList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
