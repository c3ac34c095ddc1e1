package csg

import "fmt"

// Op is a boolean operator.
type Op int

const (
	Union Op = iota
	Intersection
	Subtract        // A minus B
	ReverseSubtract // B minus A
	SymmetricDifference
)

var opNames = [...]string{
	Union:               "union",
	Intersection:        "intersection",
	Subtract:            "subtract",
	ReverseSubtract:     "reverse-subtract",
	SymmetricDifference: "symmetric-difference",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// ParseOp returns the operator named s, as printed by Op.String.
func ParseOp(s string) (Op, error) {
	for i, name := range opNames {
		if name == s {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("csg: unknown operator %q", s)
}

// Label is the position of a fragment relative to the other solid.
type Label uint8

const (
	Unknown Label = iota
	In
	Out
	OnSame     // on the other surface, normals agree
	OnOpposite // on the other surface, normals opposed
)

func (l Label) String() string {
	switch l {
	case In:
		return "in"
	case Out:
		return "out"
	case OnSame:
		return "on-same"
	case OnOpposite:
		return "on-opposite"
	default:
		return "unknown"
	}
}
