// Package api exposes the analyzer over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"listing-guard/analyze"
	"listing-guard/models"
	"listing-guard/utils"
)

const maxRequestBody = 1 << 20

// Analyzer is the pipeline the handler serves.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*analyze.Result, error)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type wrongTypeResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Detail keys are consumed as-is by the existing frontend.
type listingDetails struct {
	Title       string   `json:"Titlu"`
	Price       float64  `json:"Pret"`
	SurfaceM2   float64  `json:"Suprafata"`
	Rooms       int      `json:"Camere"`
	SellerDays  int      `json:"SellerDays"`
	SellerPosts int      `json:"SellerPosts"`
	Images      []string `json:"Images"`
}

type analyzeResponse struct {
	Success    bool           `json:"success"`
	IsFraud    int            `json:"is_fraud"`
	Confidence float64        `json:"confidence"`
	AIPrice    float64        `json:"ai_price"`
	Details    listingDetails `json:"details"`
	Message    string         `json:"message"`
}

// Handler serves analysis requests.
type Handler struct {
	analyzer Analyzer
	logger   *utils.Logger
}

// NewHandler wraps analyzer. A nil logger discards output.
func NewHandler(analyzer Analyzer, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Handler{analyzer: analyzer, logger: logger}
}

// Router registers the API routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.HandleFunc("/api/analyze", h.HandleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	return r
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAnalyze runs the analyzer on the posted URL.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Link invalid"})
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), req.URL)
	switch {
	case errors.Is(err, analyze.ErrInvalidURL):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Link invalid"})
		return
	case err != nil:
		h.logger.Error("[api] Analysis of %s failed: %v", req.URL, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if res.WrongType {
		writeJSON(w, http.StatusOK, wrongTypeResponse{ErrorType: "WRONG_TYPE", Message: res.Message})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func toResponse(res *analyze.Result) analyzeResponse {
	rec := res.Record
	isFraud := 0
	if res.Fusion.Verdict == models.VerdictFlagged {
		isFraud = 1
	}
	images := rec.Images
	if images == nil {
		images = []string{}
	}
	return analyzeResponse{
		Success:    true,
		IsFraud:    isFraud,
		Confidence: res.Fusion.FraudProbability,
		AIPrice:    res.Fusion.AdjustedPrice,
		Details: listingDetails{
			Title:       rec.Title,
			Price:       math.Round(rec.Price),
			SurfaceM2:   rec.SurfaceM2,
			Rooms:       int(rec.Rooms),
			SellerDays:  rec.Seller.AccountAgeDays,
			SellerPosts: rec.Seller.PostCount,
			Images:      images,
		},
		Message: res.Message,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
