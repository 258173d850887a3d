package glm

import (
	"fmt"
	"math"
)

// VecFunc is a function with two float64 array arguments, the second
// receiving the results.
type VecFunc func([]float64, []float64)

// Link specifies the link function of a regression model.
type Link struct {
	Name string

	TypeCode LinkType

	// Link calculates the link function (mapping the mean value
	// to the linear predictor).
	Link VecFunc

	// InvLink calculates the inverse of the link function
	// (mapping the linear predictor to the mean value).
	InvLink VecFunc

	// Deriv calculates the derivative of the link function.
	Deriv VecFunc
}

// LinkType is used to specify a link function.
type LinkType uint8

// LogLink and IdentityLink are the supported link functions.
const (
	LogLink LinkType = iota
	IdentityLink
)

// NewLink returns a link function object corresponding to the given
// type.
func NewLink(link LinkType) *Link {

	switch link {
	case LogLink:
		return &logLink
	case IdentityLink:
		return &idLink
	default:
		msg := fmt.Sprintf("Link unknown: %v\n", link)
		panic(msg)
	}
}

// ParseLink returns the link with the given name, log or identity.
func ParseLink(name string) (*Link, error) {
	switch name {
	case "log":
		return NewLink(LogLink), nil
	case "identity", "id":
		return NewLink(IdentityLink), nil
	default:
		return nil, fmt.Errorf("unknown link '%s'", name)
	}
}

var logLink = Link{
	Name:     "Log",
	TypeCode: LogLink,
	Link:     logFunc,
	InvLink:  expFunc,
	Deriv:    logDerivFunc,
}

var idLink = Link{
	Name:     "Identity",
	TypeCode: IdentityLink,
	Link:     idFunc,
	InvLink:  idFunc,
	Deriv:    idDerivFunc,
}

func logFunc(x []float64, y []float64) {
	for i := range x {
		y[i] = math.Log(x[i])
	}
}

func logDerivFunc(x []float64, y []float64) {
	for i := range x {
		y[i] = 1 / x[i]
	}
}

func expFunc(x []float64, y []float64) {
	for i := range x {
		y[i] = math.Exp(x[i])
	}
}

func idFunc(x []float64, y []float64) {
	copy(y, x)
}

func idDerivFunc(x []float64, y []float64) {
	for i := range y {
		y[i] = 1
	}
}
