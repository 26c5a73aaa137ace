package arbor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// CastType declares how an attribute converts between its storage form
// (what the engine persists) and its typed form (what callers see).
type CastType uint8

const (
	// CastInt converts the attribute to int64.
	CastInt CastType = iota + 1
	// CastFloat converts the attribute to float64.
	CastFloat
	// CastString converts the attribute to string.
	CastString
	// CastBool converts the attribute to bool, stored as 0/1.
	CastBool
	// CastArray converts between []any and a JSON column.
	CastArray
	// CastObject converts between map[string]any and a JSON column.
	CastObject
	// CastDate converts between time.Time and a "2006-01-02" column.
	CastDate
	// CastDatetime converts between time.Time and a "2006-01-02 15:04:05" column.
	CastDatetime
	// CastTimestamp converts between time.Time and a unix-seconds column.
	CastTimestamp
	// CastUUID converts between uuid.UUID and a text column.
	CastUUID
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// castToStorage normalizes a typed value into its storage form.
func castToStorage(t CastType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case CastInt:
		return toInt64(v)
	case CastFloat:
		return toFloat64(v)
	case CastString:
		return fmt.Sprint(v), nil
	case CastBool:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case CastArray, CastObject:
		if s, ok := v.(string); ok {
			return s, nil
		}
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("arbor: cast json: %w", err)
		}
		return string(buf), nil
	case CastDate:
		ts, err := toTime(v, dateLayout)
		if err != nil {
			return nil, err
		}
		return ts.Format(dateLayout), nil
	case CastDatetime:
		ts, err := toTime(v, datetimeLayout)
		if err != nil {
			return nil, err
		}
		return ts.Format(datetimeLayout), nil
	case CastTimestamp:
		switch v := v.(type) {
		case time.Time:
			return v.Unix(), nil
		default:
			return toInt64(v)
		}
	case CastUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("arbor: cast uuid: %w", err)
			}
			return id.String(), nil
		default:
			return nil, fmt.Errorf("arbor: cast uuid: unsupported type %T", v)
		}
	}
	return v, nil
}

// castFromStorage converts a storage value into its typed form.
func castFromStorage(t CastType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case CastInt:
		return toInt64(v)
	case CastFloat:
		return toFloat64(v)
	case CastString:
		return fmt.Sprint(v), nil
	case CastBool:
		return toBool(v)
	case CastArray:
		var out []any
		if err := unmarshalJSON(v, &out); err != nil {
			return nil, err
		}
		return out, nil
	case CastObject:
		out := make(map[string]any)
		if err := unmarshalJSON(v, &out); err != nil {
			return nil, err
		}
		return out, nil
	case CastDate:
		return toTime(v, dateLayout)
	case CastDatetime:
		return toTime(v, datetimeLayout)
	case CastTimestamp:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return time.Unix(n, 0).UTC(), nil
	case CastUUID:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("arbor: cast uuid: unsupported type %T", v)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("arbor: cast uuid: %w", err)
		}
		return id, nil
	}
	return v, nil
}

func unmarshalJSON(v, out any) error {
	var data []byte
	switch v := v.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("arbor: cast json: unsupported type %T", v)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("arbor: cast json: %w", err)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	}
	return 0, fmt.Errorf("arbor: cast int: unsupported type %T", v)
}

func toFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	}
	return 0, fmt.Errorf("arbor: cast float: unsupported type %T", v)
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("arbor: cast bool: unsupported type %T", v)
}

func toTime(v any, layout string) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case string:
		ts, err := time.Parse(layout, v)
		if err != nil {
			// Columns written by other tools may carry the RFC 3339 form.
			if rts, rerr := time.Parse(time.RFC3339, v); rerr == nil {
				return rts, nil
			}
			return time.Time{}, fmt.Errorf("arbor: cast time: %w", err)
		}
		return ts, nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("arbor: cast time: unsupported type %T", v)
}
