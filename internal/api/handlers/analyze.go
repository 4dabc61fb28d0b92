package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tescaelements/mashgiach/backend/internal/models"
	"github.com/tescaelements/mashgiach/backend/internal/services"
)

const (
	// maxImagesPerRequest bounds a single analysis; a label rarely needs
	// more than front + back + ingredient close-up.
	maxImagesPerRequest = 5
	maxImageBytes       = 10 << 20 // 10 MiB per file
)

// AnalyzeHandler owns the analysis endpoints. The engine itself is a pure
// request/response boundary; this handler layers fingerprinting, cache
// lookup/store, image storage and history recording around it.
type AnalyzeHandler struct {
	engine  *services.Engine
	cache   *services.VerdictCacheService
	history *services.HistoryService
	images  *services.ImageStorageService
	off     *services.OpenFoodFactsClient
}

func NewAnalyzeHandler(engine *services.Engine, cache *services.VerdictCacheService, history *services.HistoryService, images *services.ImageStorageService, off *services.OpenFoodFactsClient) *AnalyzeHandler {
	return &AnalyzeHandler{
		engine:  engine,
		cache:   cache,
		history: history,
		images:  images,
		off:     off,
	}
}

// AnalyzeImages handles POST /api/analyze: multipart form with one or more
// "images" files, an optional "barcode" field (used to pull ingredient
// context from OpenFoodFacts) and an optional "preferences" JSON object.
func (h *AnalyzeHandler) AnalyzeImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}
	if len(files) > maxImagesPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many images"})
		return
	}

	var imageBufs [][]byte
	for _, fh := range files {
		if fh.Size > maxImageBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil || len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
			return
		}
		imageBufs = append(imageBufs, data)
	}

	preferences := parsePreferences(c.PostForm("preferences"))

	// Optional barcode context: best-effort, a failed lookup just means
	// the model works from the photos alone.
	var product *services.OFFProduct
	extraContext := ""
	if barcode := c.PostForm("barcode"); barcode != "" {
		if p, found := h.off.GetProduct(c.Request.Context(), barcode); found {
			product = p
			extraContext = p.ProductName + "\nIngredientes: " + p.IngredientsText
		}
	}

	fingerprint := analysisFingerprint(imageBufs, extraContext, preferences)

	if cached, found := h.cache.Get(fingerprint); found {
		c.JSON(http.StatusOK, analysisResponse(cached, product, true))
		return
	}

	verdict, aerr := h.engine.AnalyzeImages(c.Request.Context(), imageBufs, extraContext, preferences)
	if aerr != nil {
		respondAnalysisError(c, aerr)
		return
	}

	// Keep the first photo so the history view can show the label.
	imageFile := ""
	if name, err := h.images.SaveImage(imageBufs[0]); err == nil {
		imageFile = name
	}

	if err := h.cache.Put(fingerprint, verdict); err != nil {
		// Non-fatal: the verdict still goes out, the next identical scan
		// just pays again.
		c.Error(err)
	}
	if _, err := h.history.Add(verdict, imageFile); err != nil {
		c.Error(err)
	}

	c.JSON(http.StatusOK, analysisResponse(verdict, product, false))
}

type analyzeTextRequest struct {
	Text        string            `json:"text" binding:"required"`
	Preferences map[string]string `json:"preferences"`
}

// AnalyzeText handles POST /api/analyze/text.
func (h *AnalyzeHandler) AnalyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	fingerprint := services.TextFingerprint(req.Text, req.Preferences)

	if cached, found := h.cache.Get(fingerprint); found {
		c.JSON(http.StatusOK, analysisResponse(cached, nil, true))
		return
	}

	verdict, aerr := h.engine.AnalyzeText(c.Request.Context(), req.Text, req.Preferences)
	if aerr != nil {
		respondAnalysisError(c, aerr)
		return
	}

	if err := h.cache.Put(fingerprint, verdict); err != nil {
		c.Error(err)
	}
	if _, err := h.history.Add(verdict, ""); err != nil {
		c.Error(err)
	}

	c.JSON(http.StatusOK, analysisResponse(verdict, nil, false))
}

// ExtractBarcode handles POST /api/barcode/extract: one image, best-effort
// digit extraction. Failures are reported as absence, never as an error.
func (h *AnalyzeHandler) ExtractBarcode(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
		return
	}

	barcode, found := h.engine.ExtractBarcode(c.Request.Context(), data)
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false, "barcode": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "barcode": barcode})
}

// LookupBarcode handles GET /api/barcode/:code against OpenFoodFacts.
func (h *AnalyzeHandler) LookupBarcode(c *gin.Context) {
	product, found := h.off.GetProduct(c.Request.Context(), c.Param("code"))
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "product": product})
}

// analysisFingerprint keys a cache entry over everything that shapes the
// verdict: image bytes in upload order, injected context, preferences.
func analysisFingerprint(images [][]byte, extraContext string, preferences map[string]string) string {
	bufs := make([][]byte, 0, len(images)+2)
	bufs = append(bufs, images...)
	if extraContext != "" {
		bufs = append(bufs, []byte(extraContext))
	}
	if len(preferences) > 0 {
		if pb, err := json.Marshal(preferences); err == nil {
			bufs = append(bufs, pb)
		}
	}
	return services.Fingerprint(bufs...)
}

func parsePreferences(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var prefs map[string]string
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil
	}
	return prefs
}

func analysisResponse(verdict *models.Verdict, product *services.OFFProduct, cached bool) gin.H {
	resp := gin.H{
		"verdict": verdict,
		"cached":  cached,
	}
	if agency, found := services.LookupAgency(verdict.DetectedMark()); found {
		resp["agency"] = agency
	}
	if product != nil {
		resp["product_context"] = product
	}
	return resp
}

func respondAnalysisError(c *gin.Context, aerr *models.AnalysisError) {
	status := http.StatusBadGateway
	switch aerr.Kind {
	case models.ErrKindQuotaExceeded:
		status = http.StatusTooManyRequests
	case models.ErrKindParseFailure:
		status = http.StatusUnprocessableEntity
	case models.ErrKindCancelled:
		// Client went away; 499 matches common reverse-proxy convention.
		status = 499
	}
	c.JSON(status, gin.H{
		"error":       aerr.Message,
		"kind":        aerr.Kind,
		"detail":      aerr.Detail,
		"retry_later": aerr.RetryLater(),
	})
}
