package knowledge

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Math errors.
var (
	ErrBadExpression  = errors.New("invalid math expression")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotQuadratic   = errors.New("leading coefficient must be non-zero")
)

// EvaluateExpression evaluates an arithmetic expression supporting
// +, -, *, /, ^, parentheses and unary minus.
func EvaluateExpression(expr string) (float64, error) {
	p := &exprParser{input: strings.TrimSpace(expr)}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, ErrBadExpression
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, ErrBadExpression
	}
	return result, nil
}

// exprParser is a recursive descent parser over a single expression.
// Grammar: expr = term (('+'|'-') term)*
//          term = factor (('*'|'/') factor)*
//          factor = unary ('^' factor)?
//          unary = '-' unary | '(' expr ')' | number
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == '^' {
		p.pos++
		// Right-associative
		exp, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}

	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, ErrBadExpression
	}

	switch p.input[p.pos] {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, ErrBadExpression
		}
		p.pos++
		return v, nil
	}

	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, ErrBadExpression
	}

	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, ErrBadExpression
	}
	return v, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// QuadraticSolution holds the roots of ax^2 + bx + c = 0.
type QuadraticSolution struct {
	Discriminant float64
	Real         []float64
	// Complex roots are reported as a ± bi when the discriminant is negative.
	ComplexReal float64
	ComplexImag float64
}

// SolveQuadratic solves ax^2 + bx + c = 0.
func SolveQuadratic(a, b, c float64) (*QuadraticSolution, error) {
	if a == 0 {
		return nil, ErrNotQuadratic
	}

	d := b*b - 4*a*c
	sol := &QuadraticSolution{Discriminant: d}

	switch {
	case d > 0:
		sqrtD := math.Sqrt(d)
		r1 := (-b + sqrtD) / (2 * a)
		r2 := (-b - sqrtD) / (2 * a)
		// Larger root first for stable output
		if r1 < r2 {
			r1, r2 = r2, r1
		}
		sol.Real = []float64{r1, r2}
	case d == 0:
		sol.Real = []float64{-b / (2 * a)}
	default:
		sol.ComplexReal = -b / (2 * a)
		sol.ComplexImag = math.Sqrt(-d) / (2 * a)
	}

	return sol, nil
}

// CircleProperties returns area and circumference for a radius.
func CircleProperties(radius float64) (area, circumference float64) {
	return math.Pi * radius * radius, 2 * math.Pi * radius
}

// SphereProperties returns volume and surface area for a radius.
func SphereProperties(radius float64) (volume, surface float64) {
	return 4.0 / 3.0 * math.Pi * math.Pow(radius, 3), 4 * math.Pi * radius * radius
}

// Statistics summarizes a numeric data set.
type Statistics struct {
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// ComputeStatistics calculates summary statistics for a data set.
// Standard deviation is the population form, matching the knowledge library.
func ComputeStatistics(data []float64) (*Statistics, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data set")
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(sorted))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return &Statistics{
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}, nil
}

// formatNumber renders a float without trailing zeros, rounded to 6 decimals.
func formatNumber(v float64) string {
	rounded := math.Round(v*1e6) / 1e6
	if rounded == math.Trunc(rounded) && math.Abs(rounded) < 1e15 {
		return strconv.FormatFloat(rounded, 'f', 0, 64)
	}
	s := strconv.FormatFloat(rounded, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// formatQuadratic renders a quadratic solution for chat output.
func formatQuadratic(sol *QuadraticSolution) string {
	switch len(sol.Real) {
	case 2:
		return fmt.Sprintf("x = %s or x = %s", formatNumber(sol.Real[0]), formatNumber(sol.Real[1]))
	case 1:
		return fmt.Sprintf("x = %s (double root)", formatNumber(sol.Real[0]))
	default:
		return fmt.Sprintf("x = %s + %si or x = %s - %si (complex roots)",
			formatNumber(sol.ComplexReal), formatNumber(sol.ComplexImag),
			formatNumber(sol.ComplexReal), formatNumber(sol.ComplexImag))
	}
}
