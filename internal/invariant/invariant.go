/*

StableSwap-family invariant solvers. Given scaled balances x_1..x_n (18-decimal
value units) and amplification A (at APrecision), the invariant D satisfies

  A * n^n * S + D = A * n^n * D + D^(n+1) / (n^n * prod(x_i)),  S = sum(x_i)

Both solvers iterate Newton's method in non-overflowing integer operations and
declare convergence when successive estimates differ by at most one unit. The
one-unit tolerance and the 255-round cap follow the Curve integer convention;
non-convergence is a fatal internal condition, not a user-facing validation
failure.

*/

package invariant

import (
	"errors"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/fixedpoint"
)

// maxIterations bounds both Newton solvers. Convergence typically occurs in
// four rounds or less.
const maxIterations = 255

// APrecision is the fixed precision of amplification values: 100 = 1.0 A unit.
const APrecision = 100

var (
	ErrDidNotConverge        = errors.New("invariant: solver did not converge")
	ErrZeroReserve           = errors.New("invariant: reserve not positive")
	ErrInvalidIndex          = errors.New("invariant: index out of range")
	ErrInvariantNotIncreased = errors.New("invariant: invariant would not increase")
	ErrNoSupply              = errors.New("invariant: pool token supply is zero")
)

var (
	one          = big.NewInt(1)
	aPrecisionBI = big.NewInt(APrecision)
)

func toBig(xs []sdkmath.Int) []*big.Int {
	out := make([]*big.Int, len(xs))
	for i, x := range xs {
		out[i] = new(big.Int).Set(x.BigInt())
	}
	return out
}

func fromBig(x *big.Int) (sdkmath.Int, error) {
	if x.BitLen() > 256 {
		return sdkmath.Int{}, fixedpoint.ErrOverflow
	}
	return sdkmath.NewIntFromBigInt(x), nil
}

// computeD runs the D iteration over raw big integers.
func computeD(xp []*big.Int, a *big.Int) (*big.Int, error) {
	n := int64(len(xp))
	s := new(big.Int)
	for _, x := range xp {
		s.Add(s, x)
	}
	if s.Sign() == 0 {
		return new(big.Int), nil
	}

	d := new(big.Int).Set(s)
	dPrev := new(big.Int)
	ann := new(big.Int).Mul(a, big.NewInt(n))
	nBI := big.NewInt(n)

	for k := 0; k < maxIterations; k++ {
		dP := new(big.Int).Set(d)
		for _, x := range xp {
			if x.Sign() <= 0 {
				return nil, ErrZeroReserve
			}
			// dP = dP * d / (x * n)
			dP.Mul(dP, d)
			dP.Quo(dP, new(big.Int).Mul(x, nBI))
		}
		dPrev.Set(d)

		// d = (ann*s/APrec + dP*n) * d / ((ann-APrec)*d/APrec + (n+1)*dP)
		num := new(big.Int).Mul(ann, s)
		num.Quo(num, aPrecisionBI)
		num.Add(num, new(big.Int).Mul(dP, nBI))
		num.Mul(num, d)

		den := new(big.Int).Sub(ann, aPrecisionBI)
		den.Mul(den, d)
		den.Quo(den, aPrecisionBI)
		den.Add(den, new(big.Int).Mul(dP, big.NewInt(n+1)))

		d = num.Quo(num, den)

		if new(big.Int).Sub(d, dPrev).CmpAbs(one) <= 0 {
			return d, nil
		}
	}
	return nil, ErrDidNotConverge
}

// computeY solves for the single balance at idx that reproduces d, holding
// every other balance in xp fixed.
func computeY(xp []*big.Int, idx int, d, a *big.Int) (*big.Int, error) {
	n := int64(len(xp))
	if idx < 0 || idx >= len(xp) {
		return nil, ErrInvalidIndex
	}
	if d.Sign() == 0 {
		return new(big.Int), nil
	}

	nBI := big.NewInt(n)
	ann := new(big.Int).Mul(a, nBI)
	c := new(big.Int).Set(d)
	s := new(big.Int)

	for k, x := range xp {
		if k == idx {
			continue
		}
		if x.Sign() <= 0 {
			return nil, ErrZeroReserve
		}
		s.Add(s, x)
		// c = c * d / (x * n)
		c.Mul(c, d)
		c.Quo(c, new(big.Int).Mul(x, nBI))
	}
	// c = c * d * APrec / (ann * n)
	c.Mul(c, d)
	c.Mul(c, aPrecisionBI)
	c.Quo(c, new(big.Int).Mul(ann, nBI))

	// b = s + d*APrec/ann
	b := new(big.Int).Mul(d, aPrecisionBI)
	b.Quo(b, ann)
	b.Add(b, s)

	y := new(big.Int).Set(d)
	yPrev := new(big.Int)
	for k := 0; k < maxIterations; k++ {
		yPrev.Set(y)
		// y = (y*y + c) / (2y + b - d)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Lsh(y, 1)
		den.Add(den, b)
		den.Sub(den, d)
		y = num.Quo(num, den)

		if new(big.Int).Sub(y, yPrev).CmpAbs(one) <= 0 {
			return y, nil
		}
	}
	return nil, ErrDidNotConverge
}

// ComputeD returns the invariant for the given scaled balances and precise A.
// A basket with every balance at zero yields D = 0.
func ComputeD(xp []sdkmath.Int, a sdkmath.Int) (sdkmath.Int, error) {
	d, err := computeD(toBig(xp), a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	return fromBig(d)
}

// ComputeBalance solves for the balance at idx that reproduces targetD with
// all other balances fixed.
func ComputeBalance(xp []sdkmath.Int, idx int, targetD, a sdkmath.Int) (sdkmath.Int, error) {
	y, err := computeY(toBig(xp), idx, targetD.BigInt(), a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	return fromBig(y)
}
