package knowledge

import (
	"errors"
	"strings"
)

// Unit conversion errors.
var (
	ErrUnknownUnit      = errors.New("unknown unit")
	ErrIncompatibleUnit = errors.New("units measure different quantities")
)

// unitCategory groups units that convert through a common base.
type unitCategory int

const (
	categoryLength unitCategory = iota
	categoryMass
	categoryTemperature
	categoryTime
	categoryVolume
)

// unitDef describes a unit as a factor relative to its category base
// (meters, kilograms, seconds, liters). Temperature is handled separately.
type unitDef struct {
	category unitCategory
	factor   float64
}

// unitTable maps normalized unit names (singular, lowercase) to definitions.
var unitTable = map[string]unitDef{
	// Length (base: meter)
	"meter":      {categoryLength, 1},
	"m":          {categoryLength, 1},
	"kilometer":  {categoryLength, 1000},
	"km":         {categoryLength, 1000},
	"centimeter": {categoryLength, 0.01},
	"cm":         {categoryLength, 0.01},
	"millimeter": {categoryLength, 0.001},
	"mm":         {categoryLength, 0.001},
	"mile":       {categoryLength, 1609.344},
	"mi":         {categoryLength, 1609.344},
	"yard":       {categoryLength, 0.9144},
	"yd":         {categoryLength, 0.9144},
	"foot":       {categoryLength, 0.3048},
	"feet":       {categoryLength, 0.3048},
	"ft":         {categoryLength, 0.3048},
	"inch":       {categoryLength, 0.0254},
	"inche":      {categoryLength, 0.0254}, // "inches" after naive singularization
	"in":         {categoryLength, 0.0254},

	// Mass (base: kilogram)
	"kilogram": {categoryMass, 1},
	"kg":       {categoryMass, 1},
	"gram":     {categoryMass, 0.001},
	"g":        {categoryMass, 0.001},
	"pound":    {categoryMass, 0.45359237},
	"lb":       {categoryMass, 0.45359237},
	"ounce":    {categoryMass, 0.028349523125},
	"oz":       {categoryMass, 0.028349523125},
	"ton":      {categoryMass, 1000},
	"tonne":    {categoryMass, 1000},

	// Temperature handled by convertTemperature; listed so lookup succeeds.
	"celsius":    {categoryTemperature, 0},
	"c":          {categoryTemperature, 0},
	"fahrenheit": {categoryTemperature, 0},
	"f":          {categoryTemperature, 0},
	"kelvin":     {categoryTemperature, 0},
	"k":          {categoryTemperature, 0},

	// Time (base: second)
	"second": {categoryTime, 1},
	"s":      {categoryTime, 1},
	"minute": {categoryTime, 60},
	"min":    {categoryTime, 60},
	"hour":   {categoryTime, 3600},
	"h":      {categoryTime, 3600},
	"day":    {categoryTime, 86400},
	"week":   {categoryTime, 604800},

	// Volume (base: liter)
	"liter":      {categoryVolume, 1},
	"l":          {categoryVolume, 1},
	"milliliter": {categoryVolume, 0.001},
	"ml":         {categoryVolume, 0.001},
	"gallon":     {categoryVolume, 3.785411784},
	"gal":        {categoryVolume, 3.785411784},
	"quart":      {categoryVolume, 0.946352946},
	"pint":       {categoryVolume, 0.473176473},
	"cup":        {categoryVolume, 0.2365882365},
}

// normalizeUnit lowercases and strips a trailing plural 's'.
func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, "s")
	if u == "" {
		// "s" alone is seconds
		return "s"
	}
	return u
}

// ConvertUnit converts a value between two units of the same quantity.
func ConvertUnit(value float64, from, to string) (float64, error) {
	fromDef, ok := unitTable[normalizeUnit(from)]
	if !ok {
		return 0, ErrUnknownUnit
	}
	toDef, ok := unitTable[normalizeUnit(to)]
	if !ok {
		return 0, ErrUnknownUnit
	}

	if fromDef.category != toDef.category {
		return 0, ErrIncompatibleUnit
	}

	if fromDef.category == categoryTemperature {
		return convertTemperature(value, normalizeUnit(from), normalizeUnit(to))
	}

	base := value * fromDef.factor
	return base / toDef.factor, nil
}

// convertTemperature converts via celsius as the intermediate scale.
func convertTemperature(value float64, from, to string) (float64, error) {
	var celsius float64
	switch from {
	case "celsius", "c":
		celsius = value
	case "fahrenheit", "f":
		celsius = (value - 32) * 5 / 9
	case "kelvin", "k":
		celsius = value - 273.15
	default:
		return 0, ErrUnknownUnit
	}

	switch to {
	case "celsius", "c":
		return celsius, nil
	case "fahrenheit", "f":
		return celsius*9/5 + 32, nil
	case "kelvin", "k":
		return celsius + 273.15, nil
	default:
		return 0, ErrUnknownUnit
	}
}
