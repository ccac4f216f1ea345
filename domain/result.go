package domain

import "time"

// Matrix is the transformation matrix returned by the compute service.
type Matrix [][]float64

type Coordinate struct {
	X float64
	Y float64
	Z float64
}

type CalculationResult struct {
	Result Matrix
	Coord  Coordinate
}

// CalculationRecord is a successful calculation kept in history.
type CalculationRecord struct {
	ID        string
	Rows      []ParameterInput
	Result    Matrix
	Coord     Coordinate
	CreatedAt time.Time
}
