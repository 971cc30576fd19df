package template

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/minimact-dev/minimact/pkg/vdom"
)

// State is a component's state map, keyed by hook slot keys.
type State = map[string]any

// Renderer substitutes bindings into templates. The zero value is
// not usable; use NewRenderer.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer creates a renderer. A nil logger falls back to
// slog.Default().
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// Render replaces each {i} placeholder with the formatted i-th
// parameter. Placeholders without a parameter are left in place.
func (r *Renderer) Render(tpl string, params []any) string {
	out := tpl
	for i, p := range params {
		out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", Format(p))
	}
	return out
}

// RenderPatch resolves the template's bindings from state and renders
// it. When conditional sub-templates are present, the string form of
// the binding at ConditionalBindingIndex selects which template to
// substitute; the selected template sees the same params.
func (r *Renderer) RenderPatch(tp *vdom.TemplatePatch, state State) string {
	params := make([]any, len(tp.Bindings))
	for i, b := range tp.Bindings {
		v, ok := state[b.StateKey]
		if !ok {
			r.logger.Warn("template binding missing from state", "stateKey", b.StateKey)
			params[i] = nil
			continue
		}
		if b.Transform != "" {
			v = r.Transform(v, b.Transform)
		}
		params[i] = v
	}

	tpl := tp.Template
	if len(tp.ConditionalTemplates) > 0 {
		idx := tp.ConditionalBindingIndex
		if idx < 0 || idx >= len(params) {
			r.logger.Warn("conditional binding index out of range", "index", idx)
		} else if sub, ok := tp.ConditionalTemplates[Format(params[idx])]; ok {
			tpl = sub
		} else {
			r.logger.Warn("no conditional template for selector", "selector", Format(params[idx]))
		}
	}

	return r.Render(tpl, params)
}

// Format coerces a value to its rendered string form: nil renders
// empty, arrays join with ", ", objects JSON-stringify, primitives
// coerce.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Format(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// formatFloat renders a float the way script runtimes stringify
// numbers: no trailing zeros, NaN spelled out.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
