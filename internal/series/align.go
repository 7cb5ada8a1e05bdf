// Package series merges independently dated point series into dense,
// chart-ready tables.
package series

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Point is one dated value of a series.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Series is a named list of points, assumed chronological. Counterpart holds
// the points of a related view of the same series (for example uninvested
// balances next to invested ones); it only contributes to Max.
type Series struct {
	Name        string
	Points      []Point
	Counterpart []Point
}

// Row is one date of an aligned table. A series with no point on that date
// has no column; absent means "no data", not zero.
type Row struct {
	Date   string
	values *orderedmap.OrderedMap[string, float64]
}

func newRow(date string) Row {
	return Row{Date: date, values: orderedmap.New[string, float64]()}
}

// Value returns the value of the named column.
func (r Row) Value(name string) (float64, bool) {
	if r.values == nil {
		return 0, false
	}
	return r.values.Get(name)
}

// Columns returns the column names present in the row, in insertion order.
func (r Row) Columns() []string {
	if r.values == nil {
		return nil
	}
	out := make([]string, 0, r.values.Len())
	for p := r.values.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Len returns the number of columns, excluding the date.
func (r Row) Len() int {
	if r.values == nil {
		return 0
	}
	return r.values.Len()
}

// MarshalJSON encodes the row as {"date": ..., "<name>": value, ...}.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	date, err := json.Marshal(r.Date)
	if err != nil {
		return nil, err
	}
	buf.Write(date)
	if r.values != nil {
		for p := r.values.Oldest(); p != nil; p = p.Next() {
			key, err := json.Marshal(p.Key)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(p.Value)
			if err != nil {
				return nil, err
			}
			buf.WriteByte(',')
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is the aligned output of one or more series.
type Table struct {
	Rows  []Row              `json:"rows"`
	Names []string           `json:"series_names"`
	Max   map[string]float64 `json:"max"`
}

// Align merges series into one table with a row per distinct date. Rows keep
// the order dates were first seen in; use SortByDate for chronological order.
// A later point for the same date and series overwrites the earlier one.
func Align(series ...Series) Table {
	index := orderedmap.New[string, Row]()
	t := Table{
		Names: make([]string, 0, len(series)),
		Max:   make(map[string]float64, len(series)),
	}

	for _, s := range series {
		if _, seen := t.Max[s.Name]; !seen {
			t.Names = append(t.Names, s.Name)
			t.Max[s.Name] = 0
		}
		for _, p := range s.Points {
			row, ok := index.Get(p.Date)
			if !ok {
				row = newRow(p.Date)
				index.Set(p.Date, row)
			}
			row.values.Set(s.Name, p.Value)
			if p.Value > t.Max[s.Name] {
				t.Max[s.Name] = p.Value
			}
		}
		for _, p := range s.Counterpart {
			if p.Value > t.Max[s.Name] {
				t.Max[s.Name] = p.Value
			}
		}
	}

	t.Rows = make([]Row, 0, index.Len())
	for p := index.Oldest(); p != nil; p = p.Next() {
		t.Rows = append(t.Rows, p.Value)
	}
	return t
}

// SortByDate returns a copy of t with rows in chronological order. Dates
// that parse as YYYY-MM-DD compare as dates; anything else compares as text.
// The sort is stable.
func (t Table) SortByDate() Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return dateLess(rows[i].Date, rows[j].Date)
	})
	out := t
	out.Rows = rows
	return out
}

// StackedMax is the value-axis bound of a stacked chart of the table.
func (t Table) StackedMax() float64 {
	var sum float64
	for _, name := range t.Names {
		sum += t.Max[name]
	}
	return sum
}

func dateLess(a, b string) bool {
	ta, errA := time.Parse(time.DateOnly, a)
	tb, errB := time.Parse(time.DateOnly, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}
