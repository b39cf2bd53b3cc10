// Package knowledge implements the rule-based math and science responder.
// It answers arithmetic, equations, geometry, unit conversions, physics
// formulas, constants lookups and fact-base questions without a trained model.
package knowledge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Query patterns, checked in dispatch order.
var (
	convertRegex  = regexp.MustCompile(`(?i)convert\s+(-?[\d.]+)\s*°?([a-zA-Z]+)\s+(?:to|into)\s+°?([a-zA-Z]+)`)
	circleRegex   = regexp.MustCompile(`(?i)(area|circumference)\s+of\s+(?:a\s+)?circle\s+with\s+(?:a\s+)?radius\s+(?:of\s+)?(-?[\d.]+)`)
	sphereRegex   = regexp.MustCompile(`(?i)(volume|surface\s+area)\s+of\s+(?:a\s+)?sphere\s+with\s+(?:a\s+)?radius\s+(?:of\s+)?(-?[\d.]+)`)
	forceRegex    = regexp.MustCompile(`(?i)force\s+with\s+(?:a\s+)?mass\s+(?:of\s+)?(-?[\d.]+)\s+and\s+(?:an\s+)?acceleration\s+(?:of\s+)?(-?[\d.]+)`)
	kineticRegex  = regexp.MustCompile(`(?i)kinetic\s+energy\s+with\s+(?:a\s+)?mass\s+(?:of\s+)?(-?[\d.]+)\s+and\s+(?:a\s+)?velocity\s+(?:of\s+)?(-?[\d.]+)`)
	solveRegex    = regexp.MustCompile(`(?i)solve\s+(.+?)\s*=\s*0`)
	exprRegex     = regexp.MustCompile(`-?\(?\d[\d\s.+\-*/^()]*`)
	exprOperators = regexp.MustCompile(`[\d)]\s*[+\-*/^]\s*[\d(-]`)
)

// Responder answers questions it can match against its rules.
type Responder struct {
	facts *FactBase
}

// NewResponder creates a Responder with the embedded fact base loaded.
func NewResponder() *Responder {
	return &Responder{facts: NewFactBase()}
}

// Facts exposes the underlying fact base.
func (r *Responder) Facts() *FactBase {
	return r.facts
}

// Answer attempts to answer a query. The second return value reports
// whether any rule matched; callers fall through to search or canned
// replies when it is false.
func (r *Responder) Answer(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	if m := convertRegex.FindStringSubmatch(query); m != nil {
		return r.answerConversion(m)
	}

	if m := solveRegex.FindStringSubmatch(query); m != nil {
		if answer, ok := r.answerQuadratic(m[1]); ok {
			return answer, true
		}
	}

	if m := circleRegex.FindStringSubmatch(query); m != nil {
		return r.answerCircle(m)
	}

	if m := sphereRegex.FindStringSubmatch(query); m != nil {
		return r.answerSphere(m)
	}

	if m := forceRegex.FindStringSubmatch(query); m != nil {
		mass, _ := strconv.ParseFloat(m[1], 64)
		accel, _ := strconv.ParseFloat(m[2], 64)
		return fmt.Sprintf("Using F = ma: force = %s kg × %s m/s² = %s N.",
			formatNumber(mass), formatNumber(accel), formatNumber(Force(mass, accel))), true
	}

	if m := kineticRegex.FindStringSubmatch(query); m != nil {
		mass, _ := strconv.ParseFloat(m[1], 64)
		vel, _ := strconv.ParseFloat(m[2], 64)
		return fmt.Sprintf("Using E = ½mv²: kinetic energy = ½ × %s kg × (%s m/s)² = %s J.",
			formatNumber(mass), formatNumber(vel), formatNumber(KineticEnergy(mass, vel))), true
	}

	if c, err := LookupConstant(query); err == nil {
		return c.Format(), true
	}

	if answer, ok := r.answerArithmetic(query); ok {
		return answer, true
	}

	if facts := r.facts.Search(query, 2); len(facts) > 0 {
		lines := make([]string, len(facts))
		for i, f := range facts {
			lines[i] = f.Text
		}
		return strings.Join(lines, " "), true
	}

	return "", false
}

// answerConversion handles "convert X <unit> to <unit>".
func (r *Responder) answerConversion(m []string) (string, bool) {
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", false
	}

	converted, err := ConvertUnit(value, m[2], m[3])
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%s %s is %s %s.",
		formatNumber(value), strings.ToLower(m[2]),
		formatNumber(converted), strings.ToLower(m[3])), true
}

// answerQuadratic parses "ax^2 + bx + c" from an equation body and solves it.
func (r *Responder) answerQuadratic(lhs string) (string, bool) {
	a, b, c, ok := parseQuadratic(lhs)
	if !ok {
		return "", false
	}

	sol, err := SolveQuadratic(a, b, c)
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("Solving %s = 0: %s", strings.TrimSpace(lhs), formatQuadratic(sol)), true
}

func (r *Responder) answerCircle(m []string) (string, bool) {
	radius, err := strconv.ParseFloat(m[2], 64)
	if err != nil || radius < 0 {
		return "", false
	}

	area, circumference := CircleProperties(radius)
	if strings.EqualFold(m[1], "area") {
		return fmt.Sprintf("The area of a circle with radius %s is πr² = %s.",
			formatNumber(radius), formatNumber(area)), true
	}
	return fmt.Sprintf("The circumference of a circle with radius %s is 2πr = %s.",
		formatNumber(radius), formatNumber(circumference)), true
}

func (r *Responder) answerSphere(m []string) (string, bool) {
	radius, err := strconv.ParseFloat(m[2], 64)
	if err != nil || radius < 0 {
		return "", false
	}

	volume, surface := SphereProperties(radius)
	if strings.EqualFold(strings.Join(strings.Fields(m[1]), " "), "volume") {
		return fmt.Sprintf("The volume of a sphere with radius %s is (4/3)πr³ = %s.",
			formatNumber(radius), formatNumber(volume)), true
	}
	return fmt.Sprintf("The surface area of a sphere with radius %s is 4πr² = %s.",
		formatNumber(radius), formatNumber(surface)), true
}

// answerArithmetic extracts and evaluates an arithmetic expression.
// Requires at least one operator between operands so bare numbers
// ("route 66") don't trigger it.
func (r *Responder) answerArithmetic(query string) (string, bool) {
	expr := exprRegex.FindString(query)
	if expr == "" || !exprOperators.MatchString(expr) {
		return "", false
	}

	result, err := EvaluateExpression(expr)
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%s = %s", strings.TrimSpace(expr), formatNumber(result)), true
}

// parseQuadratic extracts coefficients from expressions like
// "x^2 - 5x + 6" or "2x² + 3x - 1". Returns ok=false when the
// input is not a quadratic in x.
func parseQuadratic(lhs string) (a, b, c float64, ok bool) {
	s := strings.ToLower(lhs)
	s = strings.ReplaceAll(s, "²", "^2")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "*", "")
	if s == "" || !strings.Contains(s, "x^2") {
		return 0, 0, 0, false
	}

	termRegex := regexp.MustCompile(`([+-]?[\d.]*)x\^2|([+-]?[\d.]*)x|([+-][\d.]+|^[\d.]+)`)
	matched := termRegex.FindAllStringSubmatchIndex(s, -1)

	covered := 0
	for _, idx := range matched {
		if idx[0] != covered {
			return 0, 0, 0, false
		}
		covered = idx[1]

		m := termRegex.FindStringSubmatch(s[idx[0]:idx[1]])
		switch {
		case strings.HasSuffix(m[0], "x^2"):
			a += parseCoefficient(m[1])
		case strings.HasSuffix(m[0], "x"):
			b += parseCoefficient(m[2])
		default:
			v, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return 0, 0, 0, false
			}
			c += v
		}
	}

	if covered != len(s) || a == 0 {
		return 0, 0, 0, false
	}
	return a, b, c, true
}

// parseCoefficient interprets "", "+", "-" as 1, 1, -1.
func parseCoefficient(s string) float64 {
	switch s {
	case "", "+":
		return 1
	case "-":
		return -1
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
