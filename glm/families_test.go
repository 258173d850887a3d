package glm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/kshedden/bayesloo/statmodel"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps
}

type kernelCase struct {
	name string
	f    func() (float64, error)
	want float64
}

func TestKernelValues(t *testing.T) {

	cases := []kernelCase{
		{"normal standard", func() (float64, error) { return NormalLogPDF(0, 1, 0) }, -0.9189385332046727},
		{"normal shifted", func() (float64, error) { return NormalLogPDF(1, 2, 3) }, -math.Log(2) - 0.9189385332046727 - 0.5},
		{"poisson y=0", func() (float64, error) { return PoissonLogPMF(2, 0) }, -2},
		{"poisson y=2", func() (float64, error) { return PoissonLogPMF(2, 2) }, -1.3068528194400546},
		{"poisson y=5", func() (float64, error) { return PoissonLogPMF(3.5, 5) }, 5*math.Log(3.5) - 3.5 - math.Log(120)},
		// NB(mean 2, phi 1) is geometric with p = 1/3: P(0) = 1/3, P(3) = (1/3)(2/3)^3
		{"negbinom geometric y=0", func() (float64, error) { return NegBinomLogPMF(2, 1, 0) }, math.Log(1.0 / 3)},
		{"negbinom geometric y=3", func() (float64, error) { return NegBinomLogPMF(2, 1, 3) }, math.Log(8.0 / 81)},
	}

	for _, c := range cases {
		v, err := c.f()
		require.NoError(t, err, c.name)
		if !scalarClose(v, c.want, 1e-7) {
			t.Errorf("%s: got %f, expected %f", c.name, v, c.want)
		}
	}
}

func TestNegBinomLargeCount(t *testing.T) {

	// The large-count branch must agree with the direct lgamma formula.
	lambda, gamma, y := 1500.0, 3.5, 1200.0
	c1, _ := math.Lgamma(y + gamma)
	c2, _ := math.Lgamma(gamma)
	c3, _ := math.Lgamma(y + 1)
	want := c1 - c2 - c3 + gamma*math.Log(gamma/(gamma+lambda)) + y*math.Log(lambda/(gamma+lambda))

	v, err := NegBinomLogPMF(lambda, gamma, y)
	require.NoError(t, err)
	assert.InDelta(t, want, v, 1e-8)

	// Just below the threshold the product form is used.
	y = 999
	c1, _ = math.Lgamma(y + gamma)
	c3, _ = math.Lgamma(y + 1)
	want = c1 - c2 - c3 + gamma*math.Log(gamma/(gamma+lambda)) + y*math.Log(lambda/(gamma+lambda))
	v, err = NegBinomLogPMF(lambda, gamma, y)
	require.NoError(t, err)
	assert.InDelta(t, want, v, 1e-8)
}

func TestNegBinomPoissonLimit(t *testing.T) {

	gammas := []float64{10, 1e2, 1e3, 1e4, 1e5, 1e6}

	for _, lambda := range []float64{0.5, 2, 5, 12.3} {
		for y := 0; y < 25; y++ {
			p, err := PoissonLogPMF(lambda, float64(y))
			require.NoError(t, err)

			prev := math.Inf(1)
			for _, g := range gammas {
				nb, err := NegBinomLogPMF(lambda, g, float64(y))
				require.NoError(t, err)
				d := math.Abs(nb - p)
				if d >= prev {
					t.Errorf("lambda=%v y=%d: |NB-Poisson| did not shrink at gamma=%v (%g >= %g)",
						lambda, y, g, d, prev)
				}
				prev = d
			}
			assert.Less(t, prev, 1e-3)
		}
	}
}

func TestKernelInvalid(t *testing.T) {

	bad := []func() (float64, error){
		func() (float64, error) { return NormalLogPDF(0, 0, 1) },
		func() (float64, error) { return NormalLogPDF(0, -1, 1) },
		func() (float64, error) { return NormalLogPDF(math.NaN(), 1, 1) },
		func() (float64, error) { return PoissonLogPMF(0, 1) },
		func() (float64, error) { return PoissonLogPMF(-1, 1) },
		func() (float64, error) { return PoissonLogPMF(2, -1) },
		func() (float64, error) { return PoissonLogPMF(2, 1.5) },
		func() (float64, error) { return PoissonLogPMF(math.Inf(1), 1) },
		func() (float64, error) { return NegBinomLogPMF(2, 0, 1) },
		func() (float64, error) { return NegBinomLogPMF(0, 1, 1) },
		func() (float64, error) { return NegBinomLogPMF(2, 1, 0.5) },
		func() (float64, error) { return NegBinomLogPMF(2, 1, math.NaN()) },
	}

	for i, f := range bad {
		_, err := f()
		if !errors.Is(err, statmodel.ErrInvalidParameter) {
			t.Errorf("case %d: expected an invalid parameter error, got %v", i, err)
		}
	}
}

func TestFamilyLogLike(t *testing.T) {

	y := []float64{0, 1, 3, 2}
	mn := []float64{1, 2, 3, 4}
	out := make([]float64, 4)

	fam := NewFamily(PoissonFamily)
	require.NoError(t, fam.LogLike(y, mn, 0, out))

	want := make([]float64, 4)
	for i := range y {
		want[i], _ = PoissonLogPMF(mn[i], y[i])
	}
	assert.True(t, floats.EqualApprox(out, want, 1e-12))

	tot, err := fam.SumLogLike(y, mn, 0)
	require.NoError(t, err)
	assert.InDelta(t, floats.Sum(want), tot, 1e-12)

	mn[2] = -1
	err = fam.LogLike(y, mn, 0, out)
	assert.True(t, errors.Is(err, statmodel.ErrInvalidParameter))
	assert.Contains(t, err.Error(), "observation 2")
}

func TestParseFamily(t *testing.T) {

	for name, tc := range map[string]FamilyType{
		"normal":   GaussianFamily,
		"Gaussian": GaussianFamily,
		"poisson":  PoissonFamily,
		"negbinom": NegBinomFamily,
		"negbin":   NegBinomFamily,
	} {
		fam, err := ParseFamily(name)
		require.NoError(t, err)
		assert.Equal(t, tc, fam.TypeCode)
	}

	_, err := ParseFamily("binomial")
	assert.Error(t, err)

	assert.Panics(t, func() { NewFamily(FamilyType(99)) })
}

func TestVariance(t *testing.T) {

	mn := []float64{1, 2, 4}
	v := make([]float64, 3)

	NewFamily(GaussianFamily).Variance.Var(mn, 2, v)
	assert.Equal(t, []float64{4, 4, 4}, v)

	NewFamily(PoissonFamily).Variance.Var(mn, 0, v)
	assert.Equal(t, []float64{1, 2, 4}, v)

	NewFamily(NegBinomFamily).Variance.Var(mn, 2, v)
	assert.Equal(t, []float64{1.5, 4, 12}, v)
}

func TestLinks(t *testing.T) {

	x := []float64{0.5, 1, 2}
	y := make([]float64, 3)
	z := make([]float64, 3)

	for _, lt := range []LinkType{LogLink, IdentityLink} {
		link := NewLink(lt)
		link.Link(x, y)
		link.InvLink(y, z)
		assert.True(t, floats.EqualApprox(x, z, 1e-12), link.Name)
	}

	NewLink(LogLink).Deriv(x, y)
	assert.True(t, floats.EqualApprox(y, []float64{2, 1, 0.5}, 1e-12))

	assert.True(t, NewFamily(PoissonFamily).IsValidLink(NewLink(IdentityLink)))
	assert.Equal(t, LogLink, NewFamily(NegBinomFamily).DefaultLink().TypeCode)
	assert.Equal(t, IdentityLink, NewFamily(GaussianFamily).DefaultLink().TypeCode)

	_, err := ParseLink("probit")
	assert.Error(t, err)
}

func TestLogMeanKernels(t *testing.T) {

	for _, y := range []float64{0, 1, 4, 17, 1500} {
		for _, eta := range []float64{-3, 0, 1.5, 6} {
			a, err := PoissonLogPMF(math.Exp(eta), y)
			require.NoError(t, err)
			b, err := PoissonLogPMFLog(eta, y)
			require.NoError(t, err)
			assert.InDelta(t, a, b, 1e-9*(1+math.Abs(a)))

			a, err = NegBinomLogPMF(math.Exp(eta), 2.5, y)
			require.NoError(t, err)
			b, err = NegBinomLogPMFLog(eta, 2.5, y)
			require.NoError(t, err)
			assert.InDelta(t, a, b, 1e-9*(1+math.Abs(a)))
		}
	}

	// Underflow of the mean
	v, err := PoissonLogPMFLog(-800, 2)
	require.NoError(t, err)
	assert.InDelta(t, -1600-math.Log(2), v, 1e-9)

	_, err = PoissonLogPMFLog(800, 2)
	assert.ErrorIs(t, err, statmodel.ErrInvalidParameter)
	_, err = NegBinomLogPMFLog(math.NaN(), 1, 2)
	assert.ErrorIs(t, err, statmodel.ErrInvalidParameter)
	_, err = NegBinomLogPMFLog(0, 0, 2)
	assert.ErrorIs(t, err, statmodel.ErrInvalidParameter)

	// LinearLogLike agrees with LogLike under both links
	y := []float64{0, 2, 5}
	lp := []float64{0.5, 1.5, 4}
	fam := NewFamily(NegBinomFamily)
	for _, lt := range []LinkType{LogLink, IdentityLink} {
		link := NewLink(lt)
		mn := make([]float64, 3)
		link.InvLink(lp, mn)
		want := make([]float64, 3)
		require.NoError(t, fam.LogLike(y, mn, 3, want))
		got := make([]float64, 3)
		require.NoError(t, fam.LinearLogLike(y, lp, link, 3, got))
		assert.True(t, floats.EqualApprox(want, got, 1e-12), link.Name)
	}
}
