package term

import "math/big"

// Rational is an arbitrary-precision rational number, kept in lowest terms
// with a positive denominator. The zero value is 0/1.
//
// Numerator and denominator are backed by *big.Int rather than a fixed-width
// int, because SMT models over linear arithmetic can produce coefficients
// with no fixed width.
type Rational struct {
	num *big.Int
	den *big.Int
}

// NewRational builds a Rational from an integer numerator and denominator,
// reducing to lowest terms and normalizing the sign onto the numerator.
// It panics if den is zero.
func NewRational(num, den *big.Int) Rational {
	if den.Sign() == 0 {
		panic("term: rational with zero denominator")
	}
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 && g.Cmp(big.NewInt(1)) != 0 {
		n.Quo(n, g)
		d.Quo(d, g)
	}
	return Rational{num: n, den: d}
}

// RationalFromInt64 builds a Rational equal to the given integer.
func RationalFromInt64(v int64) Rational {
	return Rational{num: big.NewInt(v), den: big.NewInt(1)}
}

func (r Rational) normalized() Rational {
	if r.num == nil {
		return Rational{num: big.NewInt(0), den: big.NewInt(1)}
	}
	return r
}

// Num returns the numerator.
func (r Rational) Num() *big.Int {
	r = r.normalized()
	return new(big.Int).Set(r.num)
}

// Den returns the denominator, always positive.
func (r Rational) Den() *big.Int {
	r = r.normalized()
	return new(big.Int).Set(r.den)
}

// Add returns r + other.
func (r Rational) Add(other Rational) Rational {
	r, other = r.normalized(), other.normalized()
	num := new(big.Int).Add(
		new(big.Int).Mul(r.num, other.den),
		new(big.Int).Mul(other.num, r.den),
	)
	den := new(big.Int).Mul(r.den, other.den)
	return NewRational(num, den)
}

// Sub returns r - other.
func (r Rational) Sub(other Rational) Rational {
	neg := Rational{num: new(big.Int).Neg(other.normalized().num), den: other.normalized().den}
	return r.Add(neg)
}

// Mul returns r * other.
func (r Rational) Mul(other Rational) Rational {
	r, other = r.normalized(), other.normalized()
	return NewRational(new(big.Int).Mul(r.num, other.num), new(big.Int).Mul(r.den, other.den))
}

// Div returns r / other. It panics if other is zero.
func (r Rational) Div(other Rational) Rational {
	other = other.normalized()
	if other.num.Sign() == 0 {
		panic("term: division by zero rational")
	}
	r = r.normalized()
	return NewRational(new(big.Int).Mul(r.num, other.den), new(big.Int).Mul(r.den, other.num))
}

// Neg returns -r.
func (r Rational) Neg() Rational {
	r = r.normalized()
	return Rational{num: new(big.Int).Neg(r.num), den: r.den}
}

// Cmp compares r and other, returning -1, 0, or +1.
func (r Rational) Cmp(other Rational) int {
	r, other = r.normalized(), other.normalized()
	lhs := new(big.Int).Mul(r.num, other.den)
	rhs := new(big.Int).Mul(other.num, r.den)
	return lhs.Cmp(rhs)
}

// Sign returns -1, 0, or +1 according to the sign of r.
func (r Rational) Sign() int {
	return r.normalized().num.Sign()
}

// IsInteger reports whether r has denominator 1.
func (r Rational) IsInteger() bool {
	r = r.normalized()
	return r.den.Cmp(big.NewInt(1)) == 0
}

func (r Rational) String() string {
	r = r.normalized()
	if r.IsInteger() {
		return r.num.String()
	}
	return r.num.String() + "/" + r.den.String()
}
