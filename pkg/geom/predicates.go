package geom

import (
	"fmt"
	"math"
	"math/big"
)

// Sign is the result of a tri-state predicate.
type Sign int

const (
	Negative Sign = -1
	Zero     Sign = 0
	Positive Sign = 1
)

func (s Sign) String() string {
	switch s {
	case Negative:
		return "negative"
	case Zero:
		return "zero"
	case Positive:
		return "positive"
	default:
		return fmt.Sprintf("Sign(%d)", int(s))
	}
}

// Flip returns the opposite sign.
func (s Sign) Flip() Sign {
	return -s
}

// Static error bounds of the floating-point determinant evaluation
// (Shewchuk, "Adaptive Precision Floating-Point Arithmetic and Fast Robust
// Geometric Predicates"). When the float result is larger than bound times
// the permanent its sign is certain.
var (
	machEps      = math.Nextafter(1, 2) - 1
	o3dErrBoundA = (7 + 56*machEps/2) * machEps / 2
	ccwErrBoundA = (3 + 16*machEps/2) * machEps / 2
)

// Orient3D reports on which side of the plane through a, b and c the point d
// lies. Positive means d is on the side the normal (b-a)×(c-a) points to.
// Zero is only returned when d is exactly coplanar with a, b, c.
func Orient3D(a, b, c, d Vec) Sign {
	adx, ady, adz := a.X-d.X, a.Y-d.Y, a.Z-d.Z
	bdx, bdy, bdz := b.X-d.X, b.Y-d.Y, b.Z-d.Z
	cdx, cdy, cdz := c.X-d.X, c.Y-d.Y, c.Z-d.Z

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	cdxady, adxcdy := cdx*ady, adx*cdy
	adxbdy, bdxady := adx*bdy, bdx*ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)
	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	bound := o3dErrBoundA * permanent

	// det is positive when d lies below the plane seen with a, b, c
	// counterclockwise, i.e. opposite to the normal.
	switch {
	case det > bound:
		return Negative
	case -det > bound:
		return Positive
	}
	return orient3DExact(a, b, c, d)
}

func orient3DExact(a, b, c, d Vec) Sign {
	r := func(x float64) *big.Rat { return new(big.Rat).SetFloat64(x) }
	sub := func(x, y float64) *big.Rat { return new(big.Rat).Sub(r(x), r(y)) }
	mul := func(x, y *big.Rat) *big.Rat { return new(big.Rat).Mul(x, y) }

	adx, ady, adz := sub(a.X, d.X), sub(a.Y, d.Y), sub(a.Z, d.Z)
	bdx, bdy, bdz := sub(b.X, d.X), sub(b.Y, d.Y), sub(b.Z, d.Z)
	cdx, cdy, cdz := sub(c.X, d.X), sub(c.Y, d.Y), sub(c.Z, d.Z)

	t1 := new(big.Rat).Sub(mul(bdx, cdy), mul(cdx, bdy))
	t2 := new(big.Rat).Sub(mul(cdx, ady), mul(adx, cdy))
	t3 := new(big.Rat).Sub(mul(adx, bdy), mul(bdx, ady))

	det := mul(adz, t1)
	det.Add(det, mul(bdz, t2))
	det.Add(det, mul(cdz, t3))
	return Sign(-det.Sign())
}

// Orient2D reports whether c lies to the left (Positive), to the right
// (Negative) or on (Zero) the directed line from a to b.
func Orient2D(a, b, c Vec2) Sign {
	detLeft := (a.X - c.X) * (b.Y - c.Y)
	detRight := (a.Y - c.Y) * (b.X - c.X)
	det := detLeft - detRight
	bound := ccwErrBoundA * (math.Abs(detLeft) + math.Abs(detRight))
	switch {
	case det > bound:
		return Positive
	case -det > bound:
		return Negative
	}
	return orient2DExact(a, b, c)
}

func orient2DExact(a, b, c Vec2) Sign {
	r := func(x float64) *big.Rat { return new(big.Rat).SetFloat64(x) }
	acx := new(big.Rat).Sub(r(a.X), r(c.X))
	acy := new(big.Rat).Sub(r(a.Y), r(c.Y))
	bcx := new(big.Rat).Sub(r(b.X), r(c.X))
	bcy := new(big.Rat).Sub(r(b.Y), r(c.Y))
	left := new(big.Rat).Mul(acx, bcy)
	right := new(big.Rat).Mul(acy, bcx)
	return Sign(left.Sub(left, right).Sign())
}

// SignOf classifies a float against a tolerance: values within eps of zero
// are Zero.
func SignOf(x, eps float64) Sign {
	switch {
	case x > eps:
		return Positive
	case x < -eps:
		return Negative
	}
	return Zero
}

// Collinear reports whether a, b and c lie on one line, exactly.
func Collinear(a, b, c Vec) bool {
	// Three points are collinear iff their projections onto all three
	// coordinate planes are collinear.
	return Orient2D(Vec2{X: a.X, Y: a.Y}, Vec2{X: b.X, Y: b.Y}, Vec2{X: c.X, Y: c.Y}) == Zero &&
		Orient2D(Vec2{X: a.Y, Y: a.Z}, Vec2{X: b.Y, Y: b.Z}, Vec2{X: c.Y, Y: c.Z}) == Zero &&
		Orient2D(Vec2{X: a.Z, Y: a.X}, Vec2{X: b.Z, Y: b.X}, Vec2{X: c.Z, Y: c.X}) == Zero
}
