package comparer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

type ComparerTestSuite struct {
	suite.Suite
	c *Comparer
}

func (s *ComparerTestSuite) SetupTest() {
	s.c = NewComparer().(*Comparer)
}

// nil should always be the smallest value.
func (s *ComparerTestSuite) TestNilIsSmallest() {
	otherStuff := [...]any{"string", "", -1, 0, uint(12), false, true,
		time.UnixMilli(12345), 3.14,
	}
	for _, stuff := range otherStuff {
		comp, err := s.c.Compare(nil, stuff)
		s.NoError(err)
		s.Equal(-1, comp)
		comp, err = s.c.Compare(stuff, nil)
		s.NoError(err)
		s.Equal(1, comp)
	}
	comp, err := s.c.Compare(nil, nil)
	s.NoError(err)
	s.Equal(0, comp)
}

// Numbers of any underlying type should compare by value.
func (s *ComparerTestSuite) TestNumbers() {
	testCases := []struct {
		arg1 any
		arg2 any
		res  int
	}{
		{arg1: int64(-12), arg2: int16(0), res: -1},
		{arg1: uint8(0), arg2: int8(-3), res: 1},
		{arg1: 5.7, arg2: uint32(2), res: 1},
		{arg1: 5.7, arg2: float32(12.3), res: -1},
		{arg1: uint64(0), arg2: uint16(0), res: 0},
		{arg1: -2.6, arg2: -2.6, res: 0},
		{arg1: int32(5), arg2: 5, res: 0},
	}
	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

// Values of different ranks compare by rank, booleans before numbers before
// strings before times.
func (s *ComparerTestSuite) TestRankOrdering() {
	ordered := []any{false, 12, "str", time.UnixMilli(12345)}
	for i := range ordered {
		for j := range ordered {
			comp, err := s.c.Compare(ordered[i], ordered[j])
			s.NoError(err)
			switch {
			case i < j:
				s.Equal(-1, comp)
			case i > j:
				s.Equal(1, comp)
			default:
				s.Equal(0, comp)
			}
		}
	}
}

func (s *ComparerTestSuite) TestBooleans() {
	comp, err := s.c.Compare(false, true)
	s.NoError(err)
	s.Equal(-1, comp)
	comp, err = s.c.Compare(true, false)
	s.NoError(err)
	s.Equal(1, comp)
	comp, err = s.c.Compare(true, true)
	s.NoError(err)
	s.Equal(0, comp)
}

func (s *ComparerTestSuite) TestStrings() {
	comp, err := s.c.Compare("abc", "abd")
	s.NoError(err)
	s.Equal(-1, comp)
	comp, err = s.c.Compare("b", "a")
	s.NoError(err)
	s.Equal(1, comp)
}

func (s *ComparerTestSuite) TestTimes() {
	earlier := time.UnixMilli(1000)
	later := time.UnixMilli(2000)
	comp, err := s.c.Compare(earlier, later)
	s.NoError(err)
	s.Equal(-1, comp)
	comp, err = s.c.Compare(later, earlier)
	s.NoError(err)
	s.Equal(1, comp)
}

// Values outside the supported types cannot be ordered.
func (s *ComparerTestSuite) TestUnrankable() {
	_, err := s.c.Compare([]any{1}, 2)
	s.Error(err)
	s.ErrorAs(err, &domain.ErrCannotCompare{})
	_, err = s.c.Compare("str", map[string]any{})
	s.Error(err)
}

func TestComparerTestSuite(t *testing.T) {
	suite.Run(t, new(ComparerTestSuite))
}
