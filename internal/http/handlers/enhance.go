package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type enhanceRequest struct {
	Prompt string `json:"prompt"`
}

// EnhancePrompt rewrites a short prompt into a detailed one. The
// enhancer chain falls back to a local rewrite when no LLM key is
// configured, so this endpoint does not fail for missing credentials.
func (a *App) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	enhanced, err := a.Enhancer.Enhance(r.Context(), req.Prompt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"original": req.Prompt,
		"enhanced": enhanced,
	})
}
