package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	offBaseURL   = "https://world.openfoodfacts.org/api/v2/product/"
	offUserAgent = "KashrutApp/1.0 (tescaelements@example.com) - Digital Mashgiach"
	offTimeout   = 5 * time.Second
)

// OFFProduct is the subset of an OpenFoodFacts record the analysis uses.
type OFFProduct struct {
	ProductName     string `json:"product_name"`
	IngredientsText string `json:"ingredients_text"`
	Brands          string `json:"brands"`
	ImageURL        string `json:"image_url"`
}

// offResponse mirrors the OpenFoodFacts v2 payload shape.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName       string `json:"product_name"`
		IngredientsTextES string `json:"ingredients_text_es"`
		IngredientsText   string `json:"ingredients_text"`
		Brands            string `json:"brands"`
		ImageFrontURL     string `json:"image_front_url"`
	} `json:"product"`
}

// OpenFoodFactsClient looks up products by barcode. Strictly best-effort:
// any failure — network, status, decoding, unknown product — yields absent,
// never an error. The analysis proceeds without the extra context.
type OpenFoodFactsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenFoodFactsClient() *OpenFoodFactsClient {
	return &OpenFoodFactsClient{
		baseURL:    offBaseURL,
		httpClient: &http.Client{Timeout: offTimeout},
	}
}

// GetProduct fetches product data for a barcode. Returns (nil, false) when
// the product is unknown or the lookup fails for any reason.
func (c *OpenFoodFactsClient) GetProduct(ctx context.Context, barcode string) (*OFFProduct, bool) {
	if barcode == "" {
		return nil, false
	}

	url := fmt.Sprintf("%s%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", offUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		debugLog("OFF lookup failed for %s: %v", barcode, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		debugLog("OFF lookup for %s: status %d", barcode, resp.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	var data offResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Status != 1 {
		return nil, false
	}

	// Prefer the Spanish ingredient list; the analysis prompt is Spanish.
	ingredients := data.Product.IngredientsTextES
	if ingredients == "" {
		ingredients = data.Product.IngredientsText
	}

	return &OFFProduct{
		ProductName:     data.Product.ProductName,
		IngredientsText: ingredients,
		Brands:          data.Product.Brands,
		ImageURL:        data.Product.ImageFrontURL,
	}, true
}
