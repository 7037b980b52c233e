package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sakuga/internal/domain"
	"sakuga/internal/generation"
	"sakuga/internal/providers"
)

const (
	maxCount      = 10
	maxUploadSize = 32 << 20
)

type generateRequest struct {
	Prompt         string   `json:"prompt"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	AspectRatio    string   `json:"aspectRatio"`
	Count          int      `json:"count"`
	Seed           *int64   `json:"seed"`
	Steps          *int     `json:"steps"`
	CFGScale       *float64 `json:"cfgScale"`
	NegativePrompt string   `json:"negativePrompt"`
	Sampler        string   `json:"sampler"`
}

func (req *generateRequest) advanced() providers.Advanced {
	return providers.Advanced{
		Seed:           req.Seed,
		Steps:          req.Steps,
		CFGScale:       req.CFGScale,
		NegativePrompt: req.NegativePrompt,
		Sampler:        req.Sampler,
	}
}

type generationResponse struct {
	Images []domain.HistoryEntry `json:"images"`
	Cost   float64               `json:"cost"`
}

func (a *App) respondRecorded(w http.ResponseWriter, r *http.Request, req generation.Request, result *providers.Result) {
	entries, err := a.Recorder.Record(r.Context(), req, result)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generationResponse{Images: entries, Cost: result.Cost})
}

// Generate runs a synchronous text-to-image request and records the
// results in history.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Provider == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider is required")
		return
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > maxCount {
		req.Count = maxCount
	}

	result, err := a.Registry.Generate(r.Context(), req.Provider, providers.GenerateParams{
		Prompt:      req.Prompt,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
		Advanced:    req.advanced(),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondRecorded(w, r, generation.Request{
		Prompt:      req.Prompt,
		Type:        domain.GenerationTypeGenerate,
		Provider:    req.Provider,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
	}, result)
}

// Edit runs a prompt-guided image-to-image request. The source image
// arrives as multipart form data.
func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	form, ok := a.parseImageForm(w, r, "image")
	if !ok {
		return
	}
	result, err := a.Registry.Edit(r.Context(), form.provider, providers.EditParams{
		Prompt:   form.prompt,
		Image:    form.image,
		MIME:     form.mime,
		Advanced: form.advanced,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondRecorded(w, r, generation.Request{
		Prompt:   form.prompt,
		Type:     domain.GenerationTypeEdit,
		Provider: form.provider,
		Count:    1,
	}, result)
}

// Inpaint runs a masked edit. Image and mask arrive as multipart files.
func (a *App) Inpaint(w http.ResponseWriter, r *http.Request) {
	form, ok := a.parseImageForm(w, r, "image")
	if !ok {
		return
	}
	mask, _, ok := a.readFormFile(w, r, "mask")
	if !ok {
		return
	}
	result, err := a.Registry.Inpaint(r.Context(), form.provider, providers.InpaintParams{
		Prompt:   form.prompt,
		Image:    form.image,
		Mask:     mask,
		MIME:     form.mime,
		Advanced: form.advanced,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondRecorded(w, r, generation.Request{
		Prompt:   form.prompt,
		Type:     domain.GenerationTypeInpaint,
		Provider: form.provider,
		Count:    1,
	}, result)
}

// Upscale enlarges an uploaded image. No prompt is involved.
func (a *App) Upscale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	provider := r.FormValue("provider")
	if provider == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider is required")
		return
	}
	image, mime, ok := a.readFormFile(w, r, "image")
	if !ok {
		return
	}
	scale, _ := strconv.Atoi(r.FormValue("scale"))
	if scale < 2 {
		scale = 2
	}

	result, err := a.Registry.Upscale(r.Context(), provider, providers.UpscaleParams{
		Image: image,
		MIME:  mime,
		Scale: scale,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondRecorded(w, r, generation.Request{
		Prompt:   "upscale",
		Type:     domain.GenerationTypeUpscale,
		Provider: provider,
		Count:    1,
	}, result)
}

type imageForm struct {
	prompt   string
	provider string
	image    []byte
	mime     string
	advanced providers.Advanced
}

func (a *App) parseImageForm(w http.ResponseWriter, r *http.Request, field string) (imageForm, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return imageForm{}, false
	}
	form := imageForm{
		prompt:   strings.TrimSpace(r.FormValue("prompt")),
		provider: r.FormValue("provider"),
	}
	if form.prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return imageForm{}, false
	}
	if form.provider == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider is required")
		return imageForm{}, false
	}
	if v := r.FormValue("seed"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			form.advanced.Seed = &seed
		}
	}
	form.advanced.NegativePrompt = r.FormValue("negativePrompt")

	var ok bool
	form.image, form.mime, ok = a.readFormFile(w, r, field)
	return form, ok
}

func (a *App) readFormFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", field+" file is required")
		return nil, "", false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read "+field)
		return nil, "", false
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, true
}
