package domain

import "time"

type NoticeKind string

const (
	NoticeDanger     NoticeKind = "danger"
	NoticeValidation NoticeKind = "validation"
)

// Notice is a one-shot message shown on the next render of the form.
// Title and Message are message keys, localized when rendered.
type Notice struct {
	Kind     NoticeKind    `json:"kind"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Fields   []string      `json:"fields,omitempty"`
	Duration time.Duration `json:"duration"`
}

// FormState is everything the form shows for one session. Transitions
// return a new value and never modify the receiver's slices.
type FormState struct {
	Rows   []ParameterRow `json:"rows"`
	Result Matrix         `json:"result,omitempty"`
	Coord  *Coordinate    `json:"coord,omitempty"`
	Notice *Notice        `json:"notice,omitempty"`
}

// NewFormState returns the initial form: one empty row and no result.
func NewFormState(id RowID) FormState {
	return FormState{Rows: []ParameterRow{{ID: id}}}
}

func (s FormState) HasResult() bool {
	return len(s.Result) > 0
}

// AddRow appends an empty row. maxRows <= 0 means unbounded; when the cap
// is reached the state is returned unchanged.
func (s FormState) AddRow(id RowID, maxRows int) FormState {
	if maxRows > 0 && len(s.Rows) >= maxRows {
		return s
	}
	rows := make([]ParameterRow, len(s.Rows), len(s.Rows)+1)
	copy(rows, s.Rows)
	s.Rows = append(rows, ParameterRow{ID: id})
	return s
}

// RemoveRow drops the row with the given id. Unknown ids are a no-op.
func (s FormState) RemoveRow(id RowID) FormState {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s
	}
	rows := make([]ParameterRow, 0, len(s.Rows)-1)
	rows = append(rows, s.Rows[:idx]...)
	s.Rows = append(rows, s.Rows[idx+1:]...)
	return s
}

// Reset returns a single fresh row with result, coordinates and notice
// cleared.
func (s FormState) Reset(id RowID) FormState {
	return NewFormState(id)
}

func (s FormState) IndexOf(id RowID) int {
	for i, r := range s.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// WithRows replaces the row values, keeping everything else.
func (s FormState) WithRows(rows []ParameterRow) FormState {
	s.Rows = append([]ParameterRow(nil), rows...)
	return s
}

// ApplyResult replaces result and coordinates wholesale.
func (s FormState) ApplyResult(res CalculationResult) FormState {
	s.Result = cloneMatrix(res.Result)
	coord := res.Coord
	s.Coord = &coord
	return s
}

func (s FormState) WithNotice(n Notice) FormState {
	s.Notice = &n
	return s
}

// TakeNotice returns the state without its notice along with the notice
// it held, if any.
func (s FormState) TakeNotice() (FormState, *Notice) {
	n := s.Notice
	s.Notice = nil
	return s, n
}

// Inputs returns the wire shape of all rows in order.
func (s FormState) Inputs() []ParameterInput {
	inputs := make([]ParameterInput, len(s.Rows))
	for i, r := range s.Rows {
		inputs[i] = r.Input()
	}
	return inputs
}

func cloneMatrix(m Matrix) Matrix {
	if len(m) == 0 {
		return nil
	}
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
