package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/beerxml"
	"github.com/mashnote/mashnote/internal/brewcalc"
	"github.com/mashnote/mashnote/internal/importer"
	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/store"
)

// apiServer exposes the import pipeline and the catalog over HTTP. The
// endpoints are stateless: preview returns the decision list and commit takes
// it back, so the client owns the session between the two calls.
type apiServer struct {
	store store.Store
}

type parseResponse struct {
	Recipes []model.RawRecipe `json:"recipes"`
}

type previewResponse struct {
	Params    model.RecipeParams `json:"params"`
	Kept      int                `json:"kept"`
	Dropped   int                `json:"dropped"`
	Decisions []model.Decision   `json:"decisions"`
}

type commitRequest struct {
	Params    model.RecipeParams `json:"params"`
	Decisions []model.Decision   `json:"decisions"`
}

type commitResponse struct {
	ID          string                         `json:"id"`
	Metrics     *model.RecipeMetrics           `json:"metrics,omitempty"`
	Diagnostics []importer.ReconcileDiagnostic `json:"diagnostics,omitempty"`
	Ingredients []model.FinalizedIngredient    `json:"ingredients"`
}

type matchRequest struct {
	Ingredients []model.NormalizedIngredient `json:"ingredients"`
}

type matchResponse struct {
	Results []model.MatchResult `json:"results"`
}

type batchCreateRequest struct {
	Drafts []model.IngredientDraft `json:"drafts"`
}

type batchCreateResponse struct {
	Ingredients []model.Ingredient `json:"ingredients"`
}

type searchIngredientsResponse struct {
	Ingredients []model.Ingredient `json:"ingredients"`
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleParse(w http.ResponseWriter, r *http.Request) {
	recipes, err := beerxml.Parse(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Recipes: recipes})
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	var raw model.RawRecipe
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := importer.NewSession(raw)
	params := session.NormalizeUnits()
	kept, dropped := session.ValidateIngredients()

	decisions, err := session.Match(r.Context(), s.store)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Params:    params,
		Kept:      len(kept),
		Dropped:   dropped,
		Decisions: decisions,
	})
}

func (s *apiServer) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Decisions) == 0 {
		writeError(w, http.StatusBadRequest, "decisions are required")
		return
	}

	finalized, diags, err := importer.Reconcile(r.Context(), s.store, req.Decisions)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// A nil metrics result with a nil error means the recipe lacks the data
	// the formulas need; the commit still succeeds without metrics.
	metrics, err := brewcalc.Compute(finalized, req.Params)
	if err != nil {
		zap.L().Error("metrics calculation faulted",
			zap.String("recipe", req.Params.Name),
			zap.Error(err),
		)
		if eris.Is(err, brewcalc.ErrInternal) {
			writeError(w, http.StatusBadGateway, "metrics calculation failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "metrics calculation failed")
		return
	}

	recipe := model.Recipe{
		ID:          uuid.NewString(),
		Params:      req.Params,
		Ingredients: finalized,
		Metrics:     metrics,
		CreatedAt:   time.Now().UTC(),
	}
	saved, err := s.store.SaveRecipe(r.Context(), recipe)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save recipe")
		return
	}

	writeJSON(w, http.StatusOK, commitResponse{
		ID:          saved.ID,
		Metrics:     saved.Metrics,
		Diagnostics: diags,
		Ingredients: saved.Ingredients,
	})
}

func (s *apiServer) handleSearchIngredients(w http.ResponseWriter, r *http.Request) {
	filter := store.SearchFilter{
		Query: r.URL.Query().Get("q"),
		Type:  model.IngredientType(r.URL.Query().Get("type")),
	}
	found, err := s.store.SearchIngredients(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search ingredients")
		return
	}
	writeJSON(w, http.StatusOK, searchIngredientsResponse{Ingredients: found})
}

func (s *apiServer) handleMatchIngredients(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.store.MatchIngredients(r.Context(), req.Ingredients)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "match ingredients")
		return
	}
	if results == nil {
		results = []model.MatchResult{}
	}
	writeJSON(w, http.StatusOK, matchResponse{Results: results})
}

func (s *apiServer) handleCreateIngredients(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Drafts) == 0 {
		writeError(w, http.StatusBadRequest, "drafts are required")
		return
	}
	created, err := s.store.CreateIngredients(r.Context(), req.Drafts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create ingredients")
		return
	}
	writeJSON(w, http.StatusCreated, batchCreateResponse{Ingredients: created})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
