package objective

import (
	"math"

	"genopt/internal/evo"
)

func square(lo, hi float64) []evo.Bounds {
	return []evo.Bounds{{Min: lo, Max: hi}, {Min: lo, Max: hi}}
}

func initializeBuiltInFunctions() {
	MustRegister(Function{
		Name:        "f1",
		Description: "damped cosine in x, second variable unused",
		Bounds:      square(-1, 1),
		Tolerance:   DefaultTolerance,
		Eval:        DampedCosine,
	})
	MustRegister(Function{
		Name:        "rastrigin",
		Description: "scaled two-dimensional Rastrigin, minimum 0 at (0, 0)",
		Bounds:      square(-16, 16),
		Tolerance:   DefaultTolerance,
		Eval:        Rastrigin,
	})
	MustRegister(Function{
		Name:        "rosenbrock",
		Description: "Rosenbrock valley, minimum 0 at (1, 1)",
		Bounds:      square(-2, 2),
		Tolerance:   0.04,
		Eval:        Rosenbrock,
	})
	MustRegister(Function{
		Name:        "sombrero",
		Description: "modulated radial cosine ripple, minimum 0 on rings cos(r) = 0",
		Bounds:      square(-10, 10),
		Tolerance:   3e-8,
		Eval:        Sombrero,
	})
	MustRegister(Function{
		Name:        "f12",
		Description: "quadratic bowl with multiplicative cosine noise",
		Bounds:      square(0, 4),
		Tolerance:   DefaultTolerance,
		Eval:        Function12,
	})
	MustRegister(Function{
		Name:        "sphere",
		Description: "sum of squares, minimum 0 at the origin",
		Bounds:      square(-5, 5),
		Tolerance:   DefaultTolerance,
		Eval:        Sphere,
	})
}

// DampedCosine only depends on x[0].
func DampedCosine(x []float64) float64 {
	v := x[0]
	e := math.Exp(-2.77257 * v * v)
	return 0.05*(v-1)*(v-1) + (3-2.9*e)*(1-math.Cos(v*(4-50*e)))
}

func Rastrigin(x []float64) float64 {
	a, b := x[0], x[1]
	return 0.1*a*a + 0.1*b*b - 4*math.Cos(0.8*a) - 4*math.Cos(0.8*b) + 8
}

func Rosenbrock(x []float64) float64 {
	a, b := x[0], x[1]
	return 100*(b-a*a)*(b-a*a) + (1-a)*(1-a)
}

func Sombrero(x []float64) float64 {
	r := math.Hypot(x[0], x[1])
	c := math.Cos(r)
	return (1 + 0.3*math.Sin(0.7*r)) * c * c / (1 + 0.001*r*r)
}

func Function12(x []float64) float64 {
	a, b := x[0], x[1]
	bowl := 0.5 * (a*a + a*b + b*b)
	noise := 1 +
		0.5*math.Cos(1.5*a)*math.Cos(3.2*a*b)*math.Cos(3.14*b) +
		0.5*math.Cos(2.2*a)*math.Cos(4.8*a*b)*math.Cos(3.5*b)
	return bowl * noise
}

func Sphere(x []float64) float64 {
	total := 0.0
	for _, v := range x {
		total += v * v
	}
	return total
}
