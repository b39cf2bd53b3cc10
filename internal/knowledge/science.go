package knowledge

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Science errors.
var (
	ErrUnknownConstant = errors.New("unknown constant")
)

// Constant is a physical or mathematical constant with its unit.
type Constant struct {
	Name   string
	Symbol string
	Value  float64
	Unit   string
}

// constants indexes well-known constants by the phrases users ask with.
var constants = []Constant{
	{"speed of light", "c", 299792458, "m/s"},
	{"gravitational constant", "G", 6.674e-11, "N·m²/kg²"},
	{"standard gravity", "g", 9.80665, "m/s²"},
	{"planck constant", "h", 6.62607015e-34, "J·s"},
	{"elementary charge", "e", 1.602176634e-19, "C"},
	{"avogadro number", "N_A", 6.02214076e23, "1/mol"},
	{"boltzmann constant", "k_B", 1.380649e-23, "J/K"},
	{"gas constant", "R", 8.314462618, "J/(mol·K)"},
	{"electron mass", "m_e", 9.1093837015e-31, "kg"},
	{"proton mass", "m_p", 1.67262192369e-27, "kg"},
	{"pi", "π", 3.14159265358979, ""},
	{"euler number", "e", 2.71828182845905, ""},
	{"golden ratio", "φ", 1.61803398874989, ""},
	{"absolute zero", "0 K", -273.15, "°C"},
}

// constantAliases maps alternative phrasings to canonical constant names.
var constantAliases = map[string]string{
	"avogadro":            "avogadro number",
	"avogadro's number":   "avogadro number",
	"avogadros number":    "avogadro number",
	"planck":              "planck constant",
	"planck's constant":   "planck constant",
	"boltzmann":           "boltzmann constant",
	"gravity":             "standard gravity",
	"acceleration due to gravity": "standard gravity",
	"light speed":         "speed of light",
	"euler's number":      "euler number",
}

// phrasePattern anchors a phrase on word boundaries, so "pi" matches
// "what is pi" but not "pizza" or "pipeline".
func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

var (
	constantPatterns = func() []*regexp.Regexp {
		patterns := make([]*regexp.Regexp, len(constants))
		for i := range constants {
			patterns[i] = phrasePattern(constants[i].Name)
		}
		return patterns
	}()

	aliasPatterns = func() map[string]*regexp.Regexp {
		patterns := make(map[string]*regexp.Regexp, len(constantAliases))
		for alias := range constantAliases {
			patterns[alias] = phrasePattern(alias)
		}
		return patterns
	}()
)

// LookupConstant finds a constant mentioned in free text.
// Names and aliases must appear as whole words; a substring hit inside
// an unrelated word never matches.
func LookupConstant(text string) (*Constant, error) {
	lower := strings.ToLower(text)

	for alias, name := range constantAliases {
		if aliasPatterns[alias].MatchString(lower) {
			return constantByName(name)
		}
	}

	for i := range constants {
		if constantPatterns[i].MatchString(lower) {
			return &constants[i], nil
		}
	}

	return nil, ErrUnknownConstant
}

func constantByName(name string) (*Constant, error) {
	for i := range constants {
		if constants[i].Name == name {
			return &constants[i], nil
		}
	}
	return nil, ErrUnknownConstant
}

// Format renders a constant as a chat answer.
func (c *Constant) Format() string {
	value := formatScientific(c.Value)
	if c.Unit == "" {
		return fmt.Sprintf("The %s (%s) is approximately %s.", c.Name, c.Symbol, value)
	}
	return fmt.Sprintf("The %s (%s) is %s %s.", c.Name, c.Symbol, value, c.Unit)
}

// formatScientific uses scientific notation for very large or small magnitudes.
func formatScientific(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs != 0 && (abs >= 1e9 || abs < 1e-3) {
		return strings.Replace(fmt.Sprintf("%.6g", v), "e+", "×10^", 1)
	}
	return formatNumber(v)
}

// Force returns F = m·a in newtons.
func Force(mass, acceleration float64) float64 {
	return mass * acceleration
}

// KineticEnergy returns E = ½·m·v² in joules.
func KineticEnergy(mass, velocity float64) float64 {
	return 0.5 * mass * velocity * velocity
}

// PotentialEnergy returns E = m·g·h in joules using standard gravity.
func PotentialEnergy(mass, height float64) float64 {
	return mass * 9.80665 * height
}

// Molarity returns moles/volume in mol/L.
func Molarity(moles, volumeLiters float64) (float64, error) {
	if volumeLiters == 0 {
		return 0, ErrDivisionByZero
	}
	return moles / volumeLiters, nil
}
