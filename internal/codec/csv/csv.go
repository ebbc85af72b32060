// Package csv implements the CSV <-> si.Info codec referenced by §4.7:
// only the round-trip contract against SerializationInfo is in scope, not
// a general CSV manipulation API (the codec's own quoting/escaping rules
// are out of scope per spec, delegated entirely to encoding/csv).
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// Decode parses raw CSV text into an Array si.Info: one Object element per
// data row, keyed by the header row's column names. header is taken from
// the first record.
func Decode(raw []byte) (*si.Info, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse: %w", err)
	}
	root := si.New()
	root.SetArray()
	root.SetTypeName("csv")
	if len(records) == 0 {
		return root, nil
	}
	header := records[0]
	for _, row := range records[1:] {
		obj := root.AddElement()
		obj.SetObject()
		for idx, col := range header {
			if idx >= len(row) {
				obj.AddMember(col).SetString("")
				continue
			}
			obj.AddMember(col).SetString(row[idx])
		}
	}
	return root, nil
}

// Encode renders an Array of same-shaped Object elements back to CSV
// text, using the first element's member order as the header row.
func Encode(root *si.Info) ([]byte, error) {
	if root.Category() != si.Array {
		return nil, fmt.Errorf("csv: Encode requires an Array node, got %v", root.Category())
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := root.Children()
	if len(rows) == 0 {
		w.Flush()
		return buf.Bytes(), w.Error()
	}

	header := make([]string, 0, rows[0].Len())
	for _, m := range rows[0].Children() {
		header = append(header, m.Name())
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := make([]string, len(header))
		for idx, col := range header {
			m := row.FindMember(col)
			if m == nil {
				continue
			}
			s, err := m.AsString()
			if err != nil {
				return nil, fmt.Errorf("csv: column %s: %w", col, err)
			}
			record[idx] = s
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
