package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tescaelements/mashgiach/backend/internal/models"
)

func testEngine(primary, fallback, barcode ModelEndpoint) *Engine {
	var delays []time.Duration
	return NewEngineWithEndpoints(primary, fallback, barcode, testController(&delays), 4, 2)
}

func TestAnalyzeTextSuccess(t *testing.T) {
	primary := succeeding("primary", "```json\n"+`{
		"resultado": "Dudoso",
		"sello_detectado": "Ninguno",
		"categoria": "Parve",
		"alertas": ["E-120 carmín"],
		"explicacion_halajica": "El colorante carmín es de origen animal."
	}`+"\n```")
	engine := testEngine(primary, succeeding("fallback", "{}"), nil)

	verdict, aerr := engine.AnalyzeText(context.Background(), "Caramelos rojos con E-120", nil)
	if aerr != nil {
		t.Fatalf("unexpected analysis error: %v", aerr)
	}

	if verdict.Status != models.StatusUncertain {
		t.Errorf("expected status %s, got %s", models.StatusUncertain, verdict.Status)
	}
	if verdict.Source != "primary" {
		t.Errorf("expected source primary, got %q", verdict.Source)
	}
	if verdict.DetectedMark() != models.NoMarkDetected {
		t.Errorf("expected no detected mark, got %q", verdict.DetectedMark())
	}
	if len(verdict.Alerts) != 1 {
		t.Errorf("expected one alert, got %v", verdict.Alerts)
	}
	if primary.calls != 1 {
		t.Errorf("expected a single primary call, got %d", primary.calls)
	}
}

func TestAnalyzeFallsBackOnExhaustedPrimary(t *testing.T) {
	primary := alwaysFailing("primary", errQuota)
	fallback := succeeding("fallback", `{"estado": "Kosher Parve", "producto": "Avena"}`)
	engine := testEngine(primary, fallback, nil)

	verdict, aerr := engine.AnalyzeImages(context.Background(), [][]byte{[]byte("img")}, "", nil)
	if aerr != nil {
		t.Fatalf("unexpected analysis error: %v", aerr)
	}

	if verdict.Source != "fallback" {
		t.Errorf("expected source fallback, got %q", verdict.Source)
	}
	if primary.calls != 4 {
		t.Errorf("expected the full primary budget of 4 calls, got %d", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("expected 1 fallback call, got %d", fallback.calls)
	}
}

func TestAnalyzeNoFallbackOnPermanentFailure(t *testing.T) {
	primary := alwaysFailing("primary", errors.New("invalid argument"))
	fallback := succeeding("fallback", `{"estado": "Kosher Parve"}`)
	engine := testEngine(primary, fallback, nil)

	_, aerr := engine.AnalyzeText(context.Background(), "algo", nil)
	if aerr == nil {
		t.Fatal("expected an analysis error")
	}

	if aerr.Kind != models.ErrKindTransientAPI {
		t.Errorf("expected kind %s, got %s", models.ErrKindTransientAPI, aerr.Kind)
	}
	if primary.calls != 1 {
		t.Errorf("expected 1 primary call, got %d", primary.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("expected no fallback calls on a permanent failure, got %d", fallback.calls)
	}
}

func TestAnalyzeQuotaExceededWhenBothExhausted(t *testing.T) {
	primary := alwaysFailing("primary", errQuota)
	fallback := alwaysFailing("fallback", errQuota)
	engine := testEngine(primary, fallback, nil)

	_, aerr := engine.AnalyzeText(context.Background(), "algo", nil)
	if aerr == nil {
		t.Fatal("expected an analysis error")
	}

	if aerr.Kind != models.ErrKindQuotaExceeded {
		t.Errorf("expected kind %s, got %s", models.ErrKindQuotaExceeded, aerr.Kind)
	}
	if !aerr.RetryLater() {
		t.Error("expected quota errors to suggest retrying later")
	}
	if primary.calls != 4 {
		t.Errorf("expected 4 primary calls, got %d", primary.calls)
	}
	if fallback.calls != 2 {
		t.Errorf("expected the reduced fallback budget of 2 calls, got %d", fallback.calls)
	}
}

func TestAnalyzeParseFailureNotRetried(t *testing.T) {
	primary := succeeding("primary", "Lo siento, no puedo analizar esta imagen.")
	fallback := succeeding("fallback", `{"estado": "Kosher Parve"}`)
	engine := testEngine(primary, fallback, nil)

	_, aerr := engine.AnalyzeText(context.Background(), "algo", nil)
	if aerr == nil {
		t.Fatal("expected an analysis error")
	}

	if aerr.Kind != models.ErrKindParseFailure {
		t.Errorf("expected kind %s, got %s", models.ErrKindParseFailure, aerr.Kind)
	}
	if aerr.RetryLater() {
		t.Error("parse failures should not suggest retrying")
	}
	if primary.calls != 1 {
		t.Errorf("expected 1 primary call, got %d", primary.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("expected no fallback calls on a parse failure, got %d", fallback.calls)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := alwaysFailing("primary", context.Canceled)
	engine := testEngine(primary, succeeding("fallback", "{}"), nil)

	_, aerr := engine.AnalyzeText(ctx, "algo", nil)
	if aerr == nil {
		t.Fatal("expected an analysis error")
	}
	if aerr.Kind != models.ErrKindCancelled {
		t.Errorf("expected kind %s, got %s", models.ErrKindCancelled, aerr.Kind)
	}
}

func TestAnalyzePerCallTimeoutIsNotCancellation(t *testing.T) {
	// The endpoint's own call timeout surfaces as a wrapped deadline error.
	// With the caller's context still live that is an API failure, not a
	// cancellation.
	primary := alwaysFailing("primary", fmt.Errorf("generate: %w", context.DeadlineExceeded))
	fallback := succeeding("fallback", `{"estado": "Kosher Parve"}`)
	engine := testEngine(primary, fallback, nil)

	_, aerr := engine.AnalyzeText(context.Background(), "algo", nil)
	if aerr == nil {
		t.Fatal("expected an analysis error")
	}

	if aerr.Kind == models.ErrKindCancelled {
		t.Fatal("a per-call timeout must not be reported as cancelled")
	}
	if aerr.Kind != models.ErrKindTransientAPI {
		t.Errorf("expected kind %s, got %s", models.ErrKindTransientAPI, aerr.Kind)
	}
	if !aerr.RetryLater() {
		t.Error("expected retry guidance for a timed-out call")
	}
}

func TestExtractBarcode(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		err      error
		expected string
		found    bool
	}{
		{"ean13", "7501000123456", nil, "7501000123456", true},
		{"ean8 with whitespace", " 12345678\n", nil, "12345678", true},
		{"too short", "1234567", nil, "", false},
		{"none sentinel", "NONE", nil, "", false},
		{"prose answer", "El código es 7501000123456", nil, "", false},
		{"call failure", "", errors.New("deadline exceeded"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			barcode := &stubEndpoint{name: "barcode", outputs: []string{tt.output}, errs: []error{tt.err}}
			engine := testEngine(succeeding("primary", "{}"), succeeding("fallback", "{}"), barcode)

			got, found := engine.ExtractBarcode(context.Background(), []byte("img"))
			if found != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, found)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
