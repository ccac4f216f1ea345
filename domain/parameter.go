package domain

// RowID identifies a parameter row for its whole lifetime.
type RowID string

// Field is one of the four Denavit-Hartenberg parameters of a row.
type Field string

const (
	FieldA     Field = "a"
	FieldAlpha Field = "alpha"
	FieldD     Field = "d"
	FieldTheta Field = "theta"
)

// Fields lists the row fields in display order.
var Fields = []Field{FieldA, FieldAlpha, FieldD, FieldTheta}

type ParameterRow struct {
	ID    RowID
	A     string
	Alpha string
	D     string
	Theta string
}

// ParameterInput is the wire shape of one row sent to the compute service.
type ParameterInput struct {
	A     string `json:"a"`
	Alpha string `json:"alpha"`
	D     string `json:"d"`
	Theta string `json:"theta"`
}

// Value returns the text held by the given field.
func (r ParameterRow) Value(f Field) string {
	switch f {
	case FieldA:
		return r.A
	case FieldAlpha:
		return r.Alpha
	case FieldD:
		return r.D
	case FieldTheta:
		return r.Theta
	}
	return ""
}

// WithValue returns a copy of the row with the field set to v.
func (r ParameterRow) WithValue(f Field, v string) ParameterRow {
	switch f {
	case FieldA:
		r.A = v
	case FieldAlpha:
		r.Alpha = v
	case FieldD:
		r.D = v
	case FieldTheta:
		r.Theta = v
	}
	return r
}

func (r ParameterRow) Input() ParameterInput {
	return ParameterInput{A: r.A, Alpha: r.Alpha, D: r.D, Theta: r.Theta}
}
