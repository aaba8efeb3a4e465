package triggerpipeline

import (
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
)

// BuildFacts applies mapping to row, producing the Facts a rule program
// evaluates (spec §4.G step 3). A column present in mapping but absent from
// row is simply skipped — the row image is the source of truth for which
// columns exist.
func BuildFacts(mapping FactMapping, row RowImage) *fact.Facts {
	f := fact.New()
	for entity, fields := range mapping {
		obj := f.Entity(entity)
		for factField, column := range fields {
			v, ok := row[column]
			if !ok {
				continue
			}
			obj.Set(factField, columnToFact(v))
		}
	}
	return f
}

// ReverseWriteBack applies the reverse of mapping to facts, producing the
// column updates a BEFORE-timing INSERT/UPDATE trigger writes back into the
// row (spec §4.G step 4, OQ2 decision: only overwrite mapped columns — a
// fact field with no column mapping, or a column with no corresponding fact
// field, is left untouched).
func ReverseWriteBack(mapping FactMapping, facts *fact.Facts) RowImage {
	out := make(RowImage)
	for entity, fields := range mapping {
		for factField, column := range fields {
			v, err := facts.Get(entity + "." + factField)
			if err != nil {
				continue
			}
			if _, isNull := v.(fact.Null); isNull {
				continue
			}
			out[column] = factToColumn(v)
		}
	}
	return out
}

// columnToFact converts a driver-decoded SQL column value into a fact.Value,
// using the same float-vs-int64 and nil-vs-Null conventions as
// builtins/json_funcs.go's JSON interop so a trigger-sourced fact behaves
// identically to a JSON-sourced one.
func columnToFact(v interface{}) fact.Value {
	switch t := v.(type) {
	case nil:
		return fact.Null{}
	case bool:
		return fact.Bool(t)
	case string:
		return fact.String(t)
	case []byte:
		return fact.String(string(t))
	case int:
		return fact.Int64(int64(t))
	case int32:
		return fact.Int64(int64(t))
	case int64:
		return fact.Int64(t)
	case float32:
		return fact.Float64(float64(t))
	case float64:
		return fact.Float64(t)
	case time.Time:
		return fact.DateTime(t)
	default:
		return fact.Null{}
	}
}

// factToColumn is columnToFact's inverse, producing the Go value a SQL
// driver expects for a write-back parameter.
func factToColumn(v fact.Value) interface{} {
	switch t := v.(type) {
	case fact.Null:
		return nil
	case fact.Bool:
		return bool(t)
	case fact.Int64:
		return int64(t)
	case fact.Float64:
		return float64(t)
	case fact.String:
		return string(t)
	case fact.DateTime:
		return time.Time(t)
	default:
		return nil
	}
}
