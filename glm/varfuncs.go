package glm

// VarFunc places the variance of the response into v, given the means
// mn and the dispersion.
type VarFunc func(mn []float64, disp float64, v []float64)

// Variance represents the mean/variance relationship of a family.
type Variance struct {
	Name string
	Var  VarFunc
}

var constVariance = Variance{
	Name: "Constant",
	Var:  constVar,
}

var identVariance = Variance{
	Name: "Identity",
	Var:  identVar,
}

var negBinomVariance = Variance{
	Name: "NegBinom",
	Var:  negBinomVar,
}

// The Gaussian dispersion is the standard deviation.
func constVar(mn []float64, sigma float64, v []float64) {
	for i := range mn {
		v[i] = sigma * sigma
	}
}

func identVar(mn []float64, _ float64, v []float64) {
	copy(v, mn)
}

func negBinomVar(mn []float64, gamma float64, v []float64) {
	for i, m := range mn {
		v[i] = m + m*m/gamma
	}
}
