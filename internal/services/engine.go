package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tescaelements/mashgiach/backend/internal/config"
	"github.com/tescaelements/mashgiach/backend/internal/metrics"
	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// systemPrompt gives the model its role and the verdict schema. The domain
// rules are identical for the primary and fallback endpoints.
const systemPrompt = `Eres un "Mashguiaj Digital", un experto en leyes de Kashrut (leyes dietéticas judías).
Tu tarea es analizar un producto alimenticio y determinar su estado de Kashrut.

Busca meticulosamente lo siguiente:
1. Símbolos de Certificación (Hechshers): Identifica logos conocidos (OU, OK, Star-K, CRC, etc.) y menciona cuál es.
2. Ingredientes Problemáticos: Analiza la lista de ingredientes en busca de aditivos (E-numbers), colorantes o derivados de origen animal (como gelatina, carmín, etc.) que podrían invalidar el estado Kosher.
3. Clasificación: Determina si el producto es:
   - KOSHER PARVE
   - KOSHER DAIRY (Lácteo)
   - KOSHER MEAT (Carne)
   - NO KOSHER
   - DUDOSO (Requiere revisión por un Rabino)

Debes responder ÚNICAMENTE en formato JSON con la siguiente estructura:
{
  "producto": "Nombre del producto",
  "estado": "Kosher Parve / Kosher Dairy / Kosher Meat / No Kosher / Dudoso",
  "símbolos_encontrados": ["Lista de hechshers"],
  "ingredientes_alerta": ["Lista de ingredientes sospechosos"],
  "justificación": "Breve explicación teológica/técnica de la decisión",
  "advertencia": "Si aplica, un mensaje sobre la necesidad de supervisión constante."
}

Sé extremadamente preciso. Si no estás seguro, marca el producto como 'DUDOSO'. No inventes certificaciones.`

const (
	imagePrompt = "Analiza este producto para Kashrut y responde solo en JSON."

	// Text analyses see no label photo, so the model must not assume an
	// unnamed certification exists.
	textPrompt = `Analiza la siguiente descripción de un producto para Kashrut y responde solo en JSON.
Asume que NO hay sello de certificación salvo que el texto lo nombre explícitamente.
Para productos procesados sin sello explícito, clasifica como No Kosher o Dudoso.`

	barcodeSystemPrompt = "Lees códigos de barras en fotos de productos. Responde únicamente con los dígitos del código, sin texto adicional. Si no hay código legible responde NONE."
	barcodePrompt       = "Lee el código de barras de esta imagen y responde solo con sus dígitos."
)

// barcodeMinDigits is the shortest plausible barcode (EAN-8). Anything
// shorter is treated as a misread and discarded.
const barcodeMinDigits = 8

var barcodeDigits = regexp.MustCompile(`^\d{8,}$`)

// Engine is the inference gateway: it builds requests, drives the
// primary/fallback endpoint pair through the retry controller, and parses
// responses into verdicts. It holds no mutable state; caching and history
// are the caller's responsibility.
type Engine struct {
	primary  ModelEndpoint
	fallback ModelEndpoint
	barcode  ModelEndpoint
	retry    *RetryController

	primaryAttempts  int
	fallbackAttempts int
}

// NewEngine wires real Gemini endpoints from configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		primary:          NewGeminiEndpoint(cfg.GoogleAPIKey, cfg.PrimaryModel, systemPrompt, true),
		fallback:         NewGeminiEndpoint(cfg.GoogleAPIKey, cfg.FallbackModel, systemPrompt, true),
		barcode:          NewGeminiEndpoint(cfg.GoogleAPIKey, cfg.PrimaryModel, barcodeSystemPrompt, false),
		retry:            NewRetryController(),
		primaryAttempts:  cfg.PrimaryMaxAttempts,
		fallbackAttempts: cfg.FallbackMaxAttempts,
	}
}

// NewEngineWithEndpoints is the test seam: any ModelEndpoint stand-ins, any
// retry controller.
func NewEngineWithEndpoints(primary, fallback, barcode ModelEndpoint, retry *RetryController, primaryAttempts, fallbackAttempts int) *Engine {
	return &Engine{
		primary:          primary,
		fallback:         fallback,
		barcode:          barcode,
		retry:            retry,
		primaryAttempts:  primaryAttempts,
		fallbackAttempts: fallbackAttempts,
	}
}

// AnalyzeImages runs the full pipeline for one or more label photos.
// extraContext carries externally sourced ingredient text (e.g. from a
// barcode lookup); preferences carry user settings like strictness.
// Exactly one of the two return values is non-nil.
func (e *Engine) AnalyzeImages(ctx context.Context, images [][]byte, extraContext string, preferences map[string]string) (*models.Verdict, *models.AnalysisError) {
	parts := []Part{{Text: imagePrompt}}
	for _, img := range images {
		parts = append(parts, Part{Image: img})
	}
	parts = appendContextParts(parts, extraContext, preferences)
	return e.analyze(ctx, parts)
}

// AnalyzeText runs the pipeline on a free-text product description.
func (e *Engine) AnalyzeText(ctx context.Context, text string, preferences map[string]string) (*models.Verdict, *models.AnalysisError) {
	parts := []Part{{Text: textPrompt}, {Text: "Producto:\n" + text}}
	parts = appendContextParts(parts, "", preferences)
	return e.analyze(ctx, parts)
}

// ExtractBarcode asks the model to read a barcode's digits from a photo.
// Best-effort by design: one attempt, no fallback, and every failure —
// including an unreadable or implausibly short answer — degrades to absent
// rather than an error.
func (e *Engine) ExtractBarcode(ctx context.Context, image []byte) (string, bool) {
	out, err := e.barcode.Generate(ctx, []Part{{Text: barcodePrompt}, {Image: image}})
	if err != nil {
		debugLog("Barcode extraction failed: %v", err)
		return "", false
	}
	digits := strings.TrimSpace(out)
	if len(digits) < barcodeMinDigits || !barcodeDigits.MatchString(digits) {
		debugLog("Barcode extraction discarded %q", digits)
		return "", false
	}
	return digits, true
}

func appendContextParts(parts []Part, extraContext string, preferences map[string]string) []Part {
	if extraContext = strings.TrimSpace(extraContext); extraContext != "" {
		parts = append(parts, Part{Text: "Contexto adicional (ingredientes de base de datos):\n" + extraContext})
	}
	if len(preferences) > 0 {
		var b strings.Builder
		b.WriteString("Preferencias del usuario:")
		for _, k := range sortedKeys(preferences) {
			b.WriteString("\n- " + k + ": " + preferences[k])
		}
		parts = append(parts, Part{Text: b.String()})
	}
	return parts
}

// analyze drives the selector policy and normalizes the outcome.
func (e *Engine) analyze(ctx context.Context, parts []Part) (*models.Verdict, *models.AnalysisError) {
	start := time.Now()
	raw, source, aerr := e.invokeWithFallback(ctx, parts)
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())
	if aerr != nil {
		return nil, aerr
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		// A successful call with an unparseable body is not retried:
		// replaying it would spend quota without changing the shape.
		infoLog("Verdict parse failed (%s): %v", source, err)
		return nil, &models.AnalysisError{
			Kind:    models.ErrKindParseFailure,
			Message: "La respuesta del modelo no se pudo interpretar. Intenta con una foto más clara.",
			Detail:  err.Error(),
		}
	}
	verdict.Source = source
	return verdict, nil
}

// invokeWithFallback implements the selector policy: primary with the full
// retry budget; on transient exhaustion only, fallback with a reduced
// budget. Permanent primary failures propagate immediately — the fallback
// exists for capacity exhaustion, not correctness issues.
func (e *Engine) invokeWithFallback(ctx context.Context, parts []Part) (string, string, *models.AnalysisError) {
	out, err := e.retry.Invoke(ctx, e.primary, parts, e.primaryAttempts)
	if err == nil {
		metrics.InferenceRequestsTotal.WithLabelValues("primary", "success").Inc()
		return out, "primary", nil
	}
	if cerr := cancelledError(ctx, err); cerr != nil {
		return "", "", cerr
	}

	var failure *EndpointFailure
	if !errors.As(err, &failure) || !failure.Transient {
		metrics.InferenceRequestsTotal.WithLabelValues("primary", "permanent_failure").Inc()
		return "", "", apiError(err)
	}
	metrics.InferenceRequestsTotal.WithLabelValues("primary", "exhausted").Inc()
	metrics.FallbackEscalationsTotal.Inc()
	infoLog("Primary endpoint exhausted, escalating to fallback %s", e.fallback.Name())

	out, err = e.retry.Invoke(ctx, e.fallback, parts, e.fallbackAttempts)
	if err == nil {
		metrics.InferenceRequestsTotal.WithLabelValues("fallback", "success").Inc()
		return out, "fallback", nil
	}
	if cerr := cancelledError(ctx, err); cerr != nil {
		return "", "", cerr
	}

	if errors.As(err, &failure) && failure.Transient {
		metrics.InferenceRequestsTotal.WithLabelValues("fallback", "exhausted").Inc()
		return "", "", &models.AnalysisError{
			Kind:    models.ErrKindQuotaExceeded,
			Message: "Límite de cuota de la API alcanzado. Espera unos minutos e intenta de nuevo.",
			Detail:  err.Error(),
		}
	}
	metrics.InferenceRequestsTotal.WithLabelValues("fallback", "permanent_failure").Inc()
	return "", "", apiError(err)
}

// cancelledError reports cancellation only when the caller's own ctx is done.
// A deadline error from inside a call (the per-call timeout in the Gemini
// endpoint) is an API failure like any other and goes through the normal
// classification instead.
func cancelledError(ctx context.Context, err error) *models.AnalysisError {
	if ctx.Err() == nil {
		return nil
	}
	return &models.AnalysisError{
		Kind:    models.ErrKindCancelled,
		Message: "El análisis fue cancelado.",
		Detail:  err.Error(),
	}
}

func apiError(err error) *models.AnalysisError {
	return &models.AnalysisError{
		Kind:    models.ErrKindTransientAPI,
		Message: "Error al procesar el producto. Intenta de nuevo.",
		Detail:  err.Error(),
	}
}
