package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// stripCodeFences removes a surrounding ```json ... ``` (or bare ```) block.
// Gemini wraps its JSON in markdown fences on some model revisions even when
// asked for raw JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Field synonyms across prompt revisions. The first present key wins.
var (
	productKeys       = []string{"producto", "product", "product_name", "nombre"}
	statusKeys        = []string{"estado", "resultado", "status", "result"}
	categoryKeys      = []string{"categoria", "categoría", "category"}
	justificationKeys = []string{"justificación", "justificacion", "explicacion_halajica", "explicación_halájica", "justification", "reasoning"}
	warningKeys       = []string{"advertencia", "warning"}
	confidenceKeys    = []string{"confianza", "confidence"}
	symbolKeys        = []string{"símbolos_encontrados", "simbolos_encontrados", "sellos", "symbols"}
	markKeys          = []string{"sello_detectado", "detected_symbol"}
	alertKeys         = []string{"ingredientes_alerta", "alertas", "alerts", "concerns"}
)

// ParseVerdict turns raw model output into a Verdict. It strips markdown
// fencing, requires the remainder to be a JSON object, and reads fields by
// synonym with defaults for absence — the model's field set has drifted
// across revisions and strict validation would reject perfectly usable
// answers. Only a non-object or undecodable payload is a parse failure.
func ParseVerdict(raw string) (*models.Verdict, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty model response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	v := &models.Verdict{
		StatusText:    firstString(obj, statusKeys),
		Product:       firstString(obj, productKeys),
		Category:      firstString(obj, categoryKeys),
		Justification: firstString(obj, justificationKeys),
		Warning:       firstString(obj, warningKeys),
		Confidence:    firstString(obj, confidenceKeys),
		Symbols:       stringList(obj, symbolKeys),
		Alerts:        stringList(obj, alertKeys),
	}
	v.Status = models.NormalizeStatus(v.StatusText)

	// Newer revisions report a single detected mark instead of a symbol list.
	if len(v.Symbols) == 0 {
		if mark := firstString(obj, markKeys); mark != "" && !strings.EqualFold(mark, models.NoMarkDetected) {
			v.Symbols = []string{mark}
		}
	}

	// Preserve the original object for history display and debugging.
	v.Raw = json.RawMessage(cleaned)

	return v, nil
}

// firstString returns the first synonym key present as a usable string.
// Numbers are formatted rather than dropped (confidence shows up both ways).
func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch t := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", t), "0"), ".")
		}
	}
	return ""
}

// stringList returns the first synonym key present as a list of non-empty
// strings. A bare string value counts as a one-element list.
func stringList(obj map[string]any, keys []string) []string {
	for _, k := range keys {
		switch t := obj[k].(type) {
		case []any:
			var out []string
			for _, e := range t {
				if s, ok := e.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}
