package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowIDs(s FormState) []RowID {
	ids := make([]RowID, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.ID
	}
	return ids
}

func TestNewFormState_SingleEmptyRow(t *testing.T) {
	s := NewFormState("r1")

	require.Len(t, s.Rows, 1)
	assert.Equal(t, ParameterRow{ID: "r1"}, s.Rows[0])
	assert.False(t, s.HasResult())
	assert.Nil(t, s.Coord)
}

func TestAddRow_AppendsInOrder(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 0).AddRow("r3", 0)

	assert.Equal(t, []RowID{"r1", "r2", "r3"}, rowIDs(s))
	for _, r := range s.Rows {
		assert.Empty(t, r.A+r.Alpha+r.D+r.Theta)
	}
}

func TestAddRow_DoesNotMutateReceiver(t *testing.T) {
	base := NewFormState("r1")
	_ = base.AddRow("r2", 0)

	assert.Equal(t, []RowID{"r1"}, rowIDs(base))
}

func TestAddRow_RespectsCap(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 2).AddRow("r3", 2)

	assert.Equal(t, []RowID{"r1", "r2"}, rowIDs(s))
}

func TestRemoveRow(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 0).AddRow("r3", 0)

	s = s.RemoveRow("r2")
	assert.Equal(t, []RowID{"r1", "r3"}, rowIDs(s))

	s = s.RemoveRow("r1")
	assert.Equal(t, []RowID{"r3"}, rowIDs(s))

	s = s.RemoveRow("r3")
	assert.Empty(t, s.Rows)
}

func TestRemoveRow_UnknownIDIsNoop(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 0)
	s.Rows[0].A = "1"

	got := s.RemoveRow("missing")

	assert.Equal(t, s.Rows, got.Rows)
}

func TestRemoveRow_DoesNotMutateReceiver(t *testing.T) {
	base := NewFormState("r1").AddRow("r2", 0).AddRow("r3", 0)
	_ = base.RemoveRow("r1")

	assert.Equal(t, []RowID{"r1", "r2", "r3"}, rowIDs(base))
}

func TestRowIdentitiesStayUnique(t *testing.T) {
	gen := NewSequenceGenerator("a", "b", "c", "d", "e", "f", "g")
	s := NewFormState(gen.NewRowID())

	s = s.AddRow(gen.NewRowID(), 0)
	s = s.AddRow(gen.NewRowID(), 0)
	s = s.RemoveRow("b")
	s = s.AddRow(gen.NewRowID(), 0)
	s = s.RemoveRow("zzz")
	s = s.AddRow(gen.NewRowID(), 0)
	s = s.RemoveRow("a")

	seen := map[RowID]bool{}
	for _, id := range rowIDs(s) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, []RowID{"c", "d", "e"}, rowIDs(s))
}

func TestReset_ClearsEverything(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 0)
	s.Rows[0].A = "3"
	s = s.ApplyResult(CalculationResult{
		Result: Matrix{{1, 2}, {3, 4}},
		Coord:  Coordinate{X: 1, Y: 2, Z: 3},
	})
	s = s.WithNotice(Notice{Kind: NoticeDanger, Duration: 3 * time.Second})

	s = s.Reset("r9")

	assert.Equal(t, NewFormState("r9"), s)
}

func TestReset_Idempotent(t *testing.T) {
	s := NewFormState("r1").ApplyResult(CalculationResult{Result: Matrix{{1}}})

	once := s.Reset("x")
	twice := once.Reset("x")

	assert.Equal(t, once, twice)
	assert.False(t, twice.HasResult())
}

func TestApplyResult_StateMachine(t *testing.T) {
	s := NewFormState("r1")
	assert.False(t, s.HasResult())

	s = s.ApplyResult(CalculationResult{Result: Matrix{{1, 0}, {0, 1}}, Coord: Coordinate{X: 1}})
	assert.True(t, s.HasResult())
	require.NotNil(t, s.Coord)
	assert.Equal(t, 1.0, s.Coord.X)

	s = s.ApplyResult(CalculationResult{Result: Matrix{}})
	assert.False(t, s.HasResult())
}

func TestApplyResult_CopiesMatrix(t *testing.T) {
	m := Matrix{{1, 2}}
	s := NewFormState("r1").ApplyResult(CalculationResult{Result: m})

	m[0][0] = 99

	assert.Equal(t, 1.0, s.Result[0][0])
}

func TestTakeNotice_OneShot(t *testing.T) {
	s := NewFormState("r1").WithNotice(Notice{Kind: NoticeDanger, Title: "Erro!"})

	s, n := s.TakeNotice()
	require.NotNil(t, n)
	assert.Equal(t, "Erro!", n.Title)

	_, n = s.TakeNotice()
	assert.Nil(t, n)
}

func TestInputs_FollowRowOrder(t *testing.T) {
	s := NewFormState("r1").AddRow("r2", 0)
	s.Rows[0] = s.Rows[0].WithValue(FieldA, "1").WithValue(FieldTheta, "90")
	s.Rows[1] = s.Rows[1].WithValue(FieldAlpha, "45").WithValue(FieldD, "2")

	assert.Equal(t, []ParameterInput{
		{A: "1", Theta: "90"},
		{Alpha: "45", D: "2"},
	}, s.Inputs())
}

func TestSequenceGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewSequenceGenerator("only")
	assert.Equal(t, RowID("only"), gen.NewRowID())
	assert.Panics(t, func() { gen.NewRowID() })
}

func TestUUIDGenerator_Unique(t *testing.T) {
	gen := UUIDGenerator{}
	seen := map[RowID]bool{}
	for i := 0; i < 100; i++ {
		id := gen.NewRowID()
		assert.Len(t, string(id), 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
