package objective

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"genopt/internal/evo"
)

const DefaultTolerance = 0.003

var (
	ErrFunctionExists   = errors.New("objective already registered")
	ErrFunctionNotFound = errors.New("objective not found")
)

// Function is a named minimization problem: the objective together with its
// search space and the success band around the known optimum.
type Function struct {
	Name        string
	Description string
	Bounds      []evo.Bounds
	Target      float64
	Tolerance   float64
	Eval        func(x []float64) float64
}

// Evaluate implements evo.Objective.
func (f Function) Evaluate(x []float64) (float64, error) {
	if len(x) != len(f.Bounds) {
		return 0, fmt.Errorf("%s expects %d variables: got %d", f.Name, len(f.Bounds), len(x))
	}
	return f.Eval(x), nil
}

func (f Function) NumVars() int {
	return len(f.Bounds)
}

// Succeeded reports whether value lies inside the tolerance band around the target.
func (f Function) Succeeded(value float64) bool {
	return math.Abs(value-f.Target) <= f.Tolerance
}

var functionRegistry = struct {
	mu sync.RWMutex
	m  map[string]Function
}{
	m: make(map[string]Function),
}

func init() {
	initializeBuiltInFunctions()
}

func Register(fn Function) error {
	if fn.Name == "" {
		return errors.New("objective name is required")
	}
	if fn.Eval == nil {
		return errors.New("objective function is required")
	}
	if len(fn.Bounds) == 0 {
		return fmt.Errorf("objective %s: bounds are required", fn.Name)
	}
	for i, b := range fn.Bounds {
		if b.Min > b.Max {
			return fmt.Errorf("objective %s: variable %d has min %v > max %v", fn.Name, i, b.Min, b.Max)
		}
	}
	if fn.Tolerance < 0 || math.IsNaN(fn.Tolerance) {
		return fmt.Errorf("objective %s: tolerance must be >= 0: got %v", fn.Name, fn.Tolerance)
	}
	fn.Bounds = append([]evo.Bounds(nil), fn.Bounds...)

	functionRegistry.mu.Lock()
	defer functionRegistry.mu.Unlock()

	if _, exists := functionRegistry.m[fn.Name]; exists {
		return fmt.Errorf("%w: %s", ErrFunctionExists, fn.Name)
	}
	functionRegistry.m[fn.Name] = fn
	return nil
}

func MustRegister(fn Function) {
	if err := Register(fn); err != nil {
		panic(err)
	}
}

func Resolve(name string) (Function, error) {
	functionRegistry.mu.RLock()
	fn, ok := functionRegistry.m[name]
	functionRegistry.mu.RUnlock()
	if !ok {
		return Function{}, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	fn.Bounds = append([]evo.Bounds(nil), fn.Bounds...)
	return fn, nil
}

// List returns every registered function ordered by name.
func List() []Function {
	functionRegistry.mu.RLock()
	defer functionRegistry.mu.RUnlock()

	out := make([]Function, 0, len(functionRegistry.m))
	for _, fn := range functionRegistry.m {
		fn.Bounds = append([]evo.Bounds(nil), fn.Bounds...)
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Names() []string {
	fns := List()
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.Name
	}
	return names
}

func resetRegistryForTests() {
	functionRegistry.mu.Lock()
	functionRegistry.m = make(map[string]Function)
	functionRegistry.mu.Unlock()
	initializeBuiltInFunctions()
}
