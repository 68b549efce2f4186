package comparer

import (
	"cmp"
	"time"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

// Comparer implements domain.Comparer for the value types a row can hold:
// nil, booleans, numbers, strings and times. Nil orders before everything,
// then booleans, numbers, strings and times, mirroring how heterogeneous
// values collate in document stores.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	ra, rb := rank(a), rank(b)
	if ra < 0 || rb < 0 {
		return 0, domain.ErrCannotCompare{A: a, B: b}
	}
	if ra != rb {
		return cmp.Compare(ra, rb), nil
	}

	switch ra {
	case rankNil:
		return 0, nil
	case rankBool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0, nil
		}
		if bv {
			return -1, nil
		}
		return 1, nil
	case rankNumber:
		av, _ := asFloat(a)
		bv, _ := asFloat(b)
		return cmp.Compare(av, bv), nil
	case rankString:
		return cmp.Compare(a.(string), b.(string)), nil
	default:
		return a.(time.Time).Compare(b.(time.Time)), nil
	}
}

const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
)

func rank(v any) int {
	if v == nil {
		return rankNil
	}
	if _, ok := asFloat(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	default:
		return -1
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
