package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the raw value a store returned for a single-cell result.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Scalar is the single cell read from a query result.
type Scalar struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
}

func NullScalar() Scalar          { return Scalar{Kind: KindNull} }
func IntScalar(v int64) Scalar    { return Scalar{Kind: KindInteger, Int: v} }
func RealScalar(v float64) Scalar { return Scalar{Kind: KindReal, Float: v} }
func TextScalar(v string) Scalar  { return Scalar{Kind: KindText, Text: v} }
func (s Scalar) IsNull() bool     { return s.Kind == KindNull }

func (s Scalar) String() string {
	switch s.Kind {
	case KindInteger:
		return strconv.FormatInt(s.Int, 10)
	case KindReal:
		return strconv.FormatFloat(s.Float, 'f', -1, 64)
	case KindText:
		return s.Text
	default:
		return "NULL"
	}
}

// ScalarFromDriver maps a value produced by database/sql scanning into *any.
// Anything that is neither an integer nor a float is carried as text so the
// coercion step can decide what to do with it.
func ScalarFromDriver(value any) Scalar {
	switch typed := value.(type) {
	case nil:
		return NullScalar()
	case int64:
		return IntScalar(typed)
	case int:
		return IntScalar(int64(typed))
	case int32:
		return IntScalar(int64(typed))
	case int16:
		return IntScalar(int64(typed))
	case int8:
		return IntScalar(int64(typed))
	case uint8:
		return IntScalar(int64(typed))
	case uint16:
		return IntScalar(int64(typed))
	case uint32:
		return IntScalar(int64(typed))
	case uint64:
		if typed > math.MaxInt64 {
			return RealScalar(float64(typed))
		}
		return IntScalar(int64(typed))
	case uint:
		if uint64(typed) > math.MaxInt64 {
			return RealScalar(float64(typed))
		}
		return IntScalar(int64(typed))
	case float64:
		return RealScalar(typed)
	case float32:
		return RealScalar(float64(typed))
	case []byte:
		return TextScalar(string(typed))
	case string:
		return TextScalar(typed)
	case time.Time:
		return TextScalar(typed.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return TextScalar(typed.String())
	default:
		return TextScalar(fmt.Sprint(typed))
	}
}

// Number is a displayable numeric result: either an integer or a real.
type Number struct {
	Int   int64
	Float float64
	IsInt bool
}

func IntNumber(v int64) Number     { return Number{Int: v, IsInt: true} }
func FloatNumber(v float64) Number { return Number{Float: v} }

func (n Number) Float64() float64 {
	if n.IsInt {
		return float64(n.Int)
	}
	return n.Float
}

func (n Number) String() string {
	if n.IsInt {
		return strconv.FormatInt(n.Int, 10)
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// Coerce normalizes a scalar into a Number. Integers and reals pass through
// unchanged; text containing a decimal point parses as a real, any other
// text as an integer. Null and unparsable text report false.
func Coerce(s Scalar) (Number, bool) {
	switch s.Kind {
	case KindInteger:
		return IntNumber(s.Int), true
	case KindReal:
		return FloatNumber(s.Float), true
	case KindText:
		text := strings.TrimSpace(s.Text)
		if text == "" {
			return Number{}, false
		}
		if strings.Contains(text, ".") {
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return Number{}, false
			}
			return FloatNumber(value), true
		}
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Number{}, false
		}
		return IntNumber(value), true
	default:
		return Number{}, false
	}
}
