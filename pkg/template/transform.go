package template

import (
	"math"
	"strconv"
	"strings"
)

// Transform applies a whitelisted binding transform. Unknown
// transforms log a warning and return the value unchanged.
//
// The whitelist, by exact spelling:
//
//	toFixed(N)                      fixed-point formatting
//	* N, / N, + N, - N              arithmetic, N a float literal
//	toUpperCase(), toLowerCase(),   string transforms, parens optional
//	trim()
//	!                               logical negation
func (r *Renderer) Transform(v any, transform string) any {
	t := strings.TrimSpace(transform)

	switch {
	case strings.HasPrefix(t, "toFixed(") && strings.HasSuffix(t, ")"):
		digits, err := strconv.Atoi(t[len("toFixed(") : len(t)-1])
		if err != nil || digits < 0 {
			r.logger.Warn("invalid toFixed transform", "transform", transform)
			return v
		}
		return toFixed(toNumber(v), digits)

	case t == "toUpperCase()" || t == "toUpperCase":
		return strings.ToUpper(Format(v))

	case t == "toLowerCase()" || t == "toLowerCase":
		return strings.ToLower(Format(v))

	case t == "trim()" || t == "trim":
		return strings.TrimSpace(Format(v))

	case t == "!":
		return !Truthy(v)
	}

	if len(t) > 1 {
		op := t[0]
		if op == '*' || op == '/' || op == '+' || op == '-' {
			operand, err := strconv.ParseFloat(strings.TrimSpace(t[1:]), 64)
			if err == nil {
				return arithmetic(toNumber(v), op, operand)
			}
		}
	}

	r.logger.Warn("unknown template transform", "transform", transform)
	return v
}

func arithmetic(n float64, op byte, operand float64) float64 {
	switch op {
	case '*':
		return n * operand
	case '/':
		return n / operand
	case '+':
		return n + operand
	case '-':
		return n - operand
	}
	return n
}

// toFixed mirrors Number.prototype.toFixed.
func toFixed(f float64, digits int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', digits, 64)
}

// toNumber coerces a value to a float the way Number() does: numeric
// strings parse, booleans map to 0/1, anything else is NaN.
func toNumber(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// Truthy mirrors script truthiness: nil, false, 0, NaN, and the empty
// string are falsy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return true
}
