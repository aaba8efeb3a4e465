package fact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ksd-co/rule-engine-postgres/types"
)

// Serialize renders the Facts as canonical JSON-equivalent text: the
// top-level entity keys appear in insertion order (spec §3 I2/I3), and
// integers and floats are encoded so they round-trip without widening
// (spec §4.A).
func (f *Facts) Serialize() (string, error) {
	var buf bytes.Buffer
	if err := writeObject(&buf, f.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case nil, Null:
		buf.WriteString("null")
		return nil
	case Bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Int64:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
		return nil
	case Float64:
		buf.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 64))
		return nil
	case String:
		return writeString(buf, string(t))
	case DateTime:
		return writeString(buf, t.Time().UTC().Format(time.RFC3339Nano))
	case Array:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case *Object:
		return writeObject(buf, t)
	default:
		return types.NewError(types.CodeTypeMismatch, fmt.Sprintf("unknown value type %T", v), nil)
	}
}

func writeObject(buf *bytes.Buffer, o *Object) error {
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		v, _ := o.Get(k)
		if err := writeValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc, err := json.Marshal(s)
	if err != nil {
		return types.NewError(types.CodeInputMalformed, "string cannot be encoded", map[string]interface{}{"value": s})
	}
	buf.Write(enc)
	return nil
}

// Deserialize parses canonical text produced by Serialize back into Facts.
// Numbers without a fractional part or exponent decode as Int64; all others
// decode as Float64, matching Serialize's encoding exactly so round-tripping
// never widens a value's kind.
func Deserialize(text string) (*Facts, error) {
	obj, err := decodeObjectOrdered(text)
	if err != nil {
		return nil, err
	}
	return &Facts{root: obj}, nil
}

// decodeObjectOrdered re-walks the raw JSON text with json.Decoder's token
// stream so object key order is preserved — encoding/json's map decode does
// not retain it, which spec §3 I2/I3 requires.
func decodeObjectOrdered(text string) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	v, err := decodeValueTokens(dec)
	if err != nil {
		return nil, types.NewError(types.CodeInputMalformed, "facts text is malformed", map[string]interface{}{"error": err.Error()})
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, types.NewError(types.CodeInputMalformed, "facts text root must be an object", nil)
	}
	return obj, nil
}

func decodeValueTokens(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeValueTokens(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var arr Array
			for dec.More() {
				val, err := decodeValueTokens(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		// JSON has no native DateTime; Serialize encodes DateTime values as
		// RFC3339Nano strings, so a string always decodes back to String
		// here. Callers that know a field is temporal convert it with
		// ParseDateTime after Get.
		return String(t), nil
	case json.Number:
		if isIntegerLiteral(string(t)) {
			i, err := t.Int64()
			if err == nil {
				return Int64(i), nil
			}
		}
		fl, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float64(fl), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v (%T)", tok, tok)
	}
}

func isIntegerLiteral(s string) bool {
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseDateTime parses an RFC3339Nano string into a DateTime Value, the
// inverse of the encoding Serialize applies to DateTime values.
func ParseDateTime(s string) (DateTime, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return DateTime{}, types.NewError(types.CodeInputMalformed, "not a valid RFC3339 timestamp", map[string]interface{}{"value": s})
	}
	return DateTime(t), nil
}
