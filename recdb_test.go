package recdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type Compound struct {
	ID      int64 `recdb:"_id"`
	Formula string
	Melting *Measurement
}

type Measurement struct {
	ID    int64 `recdb:"_id"`
	Value float64
	Units string
}

type RecDBTestSuite struct {
	suite.Suite
	db  RecDB
	ctx context.Context
}

func (s *RecDBTestSuite) SetupTest() {
	db, err := NewDB(
		WithName("chemdb"),
		WithRoot(s.T().TempDir()),
		WithTypes(&Compound{}),
	)
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
}

func (s *RecDBTestSuite) TestRoundTrip() {
	c := &Compound{Formula: "H2O", Melting: &Measurement{Value: 273.15, Units: "K"}}
	s.NoError(s.db.Write(s.ctx, c))
	s.NotZero(c.ID)

	v, err := s.db.Record(s.ctx, "Compound", c.ID)
	s.Require().NoError(err)
	got, ok := v.(*Compound)
	s.Require().True(ok)
	s.Equal("H2O", got.Formula)
	s.Require().NotNil(got.Melting)
	s.Equal("K", got.Melting.Units)
}

func (s *RecDBTestSuite) TestStream() {
	s.NoError(s.db.Add(s.ctx, &Compound{Formula: "H2O"}, &Compound{Formula: "CO2"}))

	st, err := s.db.Records(s.ctx, "Compound")
	s.Require().NoError(err)
	defer st.Close()

	only := st.Filtered(func(v any) bool { return v.(*Compound).Formula == "CO2" })
	all, err := only.All()
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal("CO2", all[0].(*Compound).Formula)
}

func (s *RecDBTestSuite) TestInvalidName() {
	_, err := NewDB(WithName("bad~"), WithRoot(s.T().TempDir()))
	s.ErrorAs(err, &ErrDatabaseName{})
}

func TestRecDBTestSuite(t *testing.T) {
	suite.Run(t, new(RecDBTestSuite))
}
