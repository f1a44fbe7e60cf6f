package source

import (
	"time"

	"github.com/shopspring/decimal"
)

// Normalize converts a scanned column value to one of the Record value
// types. SQL Server DECIMAL, NUMERIC and MONEY columns arrive as []byte
// text; they become float64 (lossy by intent, the dashboard only displays
// them). Other []byte values become strings.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if d, err := decimal.NewFromString(string(val)); err == nil {
			return d.InexactFloat64()
		}
		return string(val)
	case decimal.Decimal:
		return val.InexactFloat64()
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.InexactFloat64()
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	case int64, float64, bool, string, time.Time:
		return val
	}
	return v
}
