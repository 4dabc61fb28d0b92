package models

import (
	"encoding/json"
	"strings"
	"time"
)

// KashrutStatus is the closed set of compliance outcomes. Anything the model
// reports that does not clearly map to one of the first four buckets is
// StatusUncertain; we never coerce uncertainty into a yes/no answer.
type KashrutStatus string

const (
	StatusKosherParve KashrutStatus = "kosher_parve"
	StatusKosherDairy KashrutStatus = "kosher_dairy"
	StatusKosherMeat  KashrutStatus = "kosher_meat"
	StatusNotKosher   KashrutStatus = "not_kosher"
	StatusUncertain   KashrutStatus = "uncertain"
)

// NoMarkDetected is the sentinel the model uses when no certification
// symbol is visible on the label.
const NoMarkDetected = "Ninguno"

// Verdict is the structured outcome of one analysis call. The model's JSON
// field names have drifted across prompt revisions (estado vs resultado,
// símbolos_encontrados vs sello_detectado), so Verdict is built from the raw
// object by synonym lookup rather than strict unmarshalling; Raw preserves
// the original object for history display.
type Verdict struct {
	Status        KashrutStatus   `json:"status"`
	StatusText    string          `json:"status_text"` // model's own wording, e.g. "Kosher Parve"
	Product       string          `json:"product"`
	Category      string          `json:"category"`
	Symbols       []string        `json:"symbols"`
	Alerts        []string        `json:"alerts"`
	Justification string          `json:"justification"`
	Warning       string          `json:"warning,omitempty"`
	Confidence    string          `json:"confidence,omitempty"`
	Source        string          `json:"source,omitempty"` // "primary", "fallback" or "cache"
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// DetectedMark returns the first certification symbol the model reported,
// or NoMarkDetected when the list is empty.
func (v *Verdict) DetectedMark() string {
	for _, s := range v.Symbols {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return NoMarkDetected
}

// NormalizeStatus maps the model's free-form status wording (Spanish or
// English, any revision) onto the closed KashrutStatus set. The "NO KOSHER"
// checks run before the category checks so "No Kosher (contiene carne)"
// does not land in the meat bucket.
func NormalizeStatus(s string) KashrutStatus {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case u == "":
		return StatusUncertain
	case strings.Contains(u, "NO KOSHER"), strings.Contains(u, "NOT KOSHER"):
		return StatusNotKosher
	case strings.Contains(u, "PARVE"), strings.Contains(u, "PAREVE"), strings.Contains(u, "NEUTRAL"):
		return StatusKosherParve
	case strings.Contains(u, "DAIRY"), strings.Contains(u, "LÁCTEO"), strings.Contains(u, "LACTEO"):
		return StatusKosherDairy
	case strings.Contains(u, "MEAT"), strings.Contains(u, "CARNE"):
		return StatusKosherMeat
	default:
		// Includes "Dudoso", "Uncertain" and anything unrecognized.
		return StatusUncertain
	}
}

// ErrorKind tags an AnalysisError so the UI can pick the right guidance.
type ErrorKind string

const (
	ErrKindQuotaExceeded ErrorKind = "quota_exceeded"
	ErrKindTransientAPI  ErrorKind = "transient_api_failure"
	ErrKindParseFailure  ErrorKind = "parse_failure"
	ErrKindCancelled     ErrorKind = "cancelled"
)

// AnalysisError is the failure half of the gateway's discriminated result.
// A gateway call yields exactly one of Verdict or AnalysisError, never both.
type AnalysisError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"` // technical detail, shown behind a disclosure
}

func (e *AnalysisError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// RetryLater reports whether the UI should suggest waiting and retrying.
func (e *AnalysisError) RetryLater() bool {
	return e.Kind == ErrKindQuotaExceeded || e.Kind == ErrKindTransientAPI
}

// Scan is one history entry: an analysis the user ran, append-only.
type Scan struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index"`
	ProductName string        `json:"product_name"`
	Status      KashrutStatus `json:"status" gorm:"size:20;index"`
	Category    string        `json:"category"`
	Details     string        `json:"details"` // full verdict JSON
	ImageFile   string        `json:"image_file,omitempty"`
	IsFavorite  bool          `json:"is_favorite" gorm:"default:false;index"`
}

func (Scan) TableName() string {
	return "scans"
}

// Verdict decodes the stored verdict JSON. Returns nil if the row predates
// the current schema or the JSON is unreadable.
func (s *Scan) Verdict() *Verdict {
	var v Verdict
	if err := json.Unmarshal([]byte(s.Details), &v); err != nil {
		return nil
	}
	return &v
}
