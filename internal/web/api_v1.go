package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/schedule"
	"github.com/rook-computer/covermaker/internal/state"
	xdraw "golang.org/x/image/draw"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type imageInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type stateResponse struct {
	schedule.Patch
	BackgroundImage *imageInfo `json:"backgroundImage"`
	IconImage       *imageInfo `json:"iconImage"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
}

type composeResponse struct {
	OK      bool   `json:"ok"`
	Version uint64 `json:"version"`
}

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) { handleState(w, r, deps) })
	mux.HandleFunc("/background-image", func(w http.ResponseWriter, r *http.Request) {
		handleImage(w, r, deps, deps.Pipeline.SetBackgroundImage)
	})
	mux.HandleFunc("/icon", func(w http.ResponseWriter, r *http.Request) {
		handleImage(w, r, deps, deps.Pipeline.SetIconImage)
	})
	mux.HandleFunc("/compose", func(w http.ResponseWriter, r *http.Request) { handleCompose(w, r, deps) })
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) { handleExport(w, r, deps) })
	mux.HandleFunc("/exports/", func(w http.ResponseWriter, r *http.Request) { handleExports(w, r, deps) })
	mux.HandleFunc("/preview.png", func(w http.ResponseWriter, r *http.Request) { handlePreview(w, r, deps) })
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, deps.Pipeline.Stats())
	})
	mux.HandleFunc("/fonts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, deps.Fonts.Families())
	})
	return mux
}

func handleState(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newStateResponse(deps))
	case http.MethodPatch, http.MethodPost:
		var patch schedule.Patch
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if err := deps.Pipeline.ApplyPatch(patch); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_patch", err.Error())
			return
		}
		if !wantsSettle(r) {
			writeJSON(w, http.StatusAccepted, okResponse{OK: true})
			return
		}
		if err := deps.Pipeline.Settle(r.Context()); err != nil {
			writeAPIError(w, http.StatusConflict, "not_settled", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(deps))
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func newStateResponse(deps APIV1Deps) stateResponse {
	snap := deps.Pipeline.Snapshot()
	width, height := deps.Output.Size()
	return stateResponse{
		Patch:           schedule.PatchFrom(snap),
		BackgroundImage: describeImage(snap.BackgroundImage),
		IconImage:       describeImage(snap.IconImage),
		Width:           width,
		Height:          height,
	}
}

func describeImage(src *state.ImageSource) *imageInfo {
	if src.Empty() {
		return nil
	}
	return &imageInfo{Name: src.Name, Size: src.Size}
}

// handleImage sets (POST, raw image body) or clears (DELETE) one image slot.
func handleImage(w http.ResponseWriter, r *http.Request, deps APIV1Deps, set func(*state.ImageSource)) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		if err := requireContentLength(r); err != nil {
			writeAPIError(w, http.StatusLengthRequired, "length_required", err.Error())
			return
		}
		if r.ContentLength > deps.MaxUploadBytes {
			writeAPIError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("image exceeds %d bytes", deps.MaxUploadBytes))
			return
		}
		name := sanitizeFilename(r.URL.Query().Get("name"))
		if name == "" {
			name = "upload"
		}
		src, err := state.ReadImageSource(name, r.Body, deps.MaxUploadBytes)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "read_failed", err.Error())
			return
		}
		set(src)
		deps.Logger.Infof("api", "image %s (%d bytes) queued for %s", src.Name, src.Size, r.URL.Path)
	case http.MethodDelete:
		set(nil)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if wantsSettle(r) {
		if err := deps.Pipeline.Settle(r.Context()); err != nil {
			writeAPIError(w, http.StatusConflict, "not_settled", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleCompose(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if wantsSettle(r) {
		if err := deps.Pipeline.Settle(r.Context()); err != nil {
			writeAPIError(w, http.StatusConflict, "not_settled", err.Error())
			return
		}
	}
	if !deps.Pipeline.ComposeCanvases(r.Context()) {
		writeAPIError(w, http.StatusConflict, "missing_surface", render.ErrMissingSurface.Error())
		return
	}
	_, version, err := deps.Output.Output()
	if err != nil {
		writeAPIError(w, http.StatusConflict, "missing_surface", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, composeResponse{OK: true, Version: version})
}

func handleExport(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	query := r.URL.Query()
	format, err := render.ParseFormat(query.Get("format"))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "unsupported_format", err.Error())
		return
	}
	quality := render.DefaultQuality
	if raw := query.Get("quality"); raw != "" {
		quality, err = strconv.ParseFloat(raw, 64)
		if err != nil || quality <= 0 || quality > 1 {
			writeAPIError(w, http.StatusBadRequest, "invalid_quality", "quality must be a number in (0, 1]")
			return
		}
	}
	if wantsSettle(r) {
		if err := deps.Pipeline.Settle(r.Context()); err != nil {
			writeAPIError(w, http.StatusConflict, "not_settled", err.Error())
			return
		}
	}

	blob, err := deps.Pipeline.Export(format, quality)
	switch {
	case errors.Is(err, render.ErrMissingSurface):
		writeAPIError(w, http.StatusConflict, "missing_surface", err.Error())
		return
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, blob)
}

// handleExports serves GET /exports/{file} and GET /exports/{file}/qr.
func handleExports(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, "/exports/"), "/")
	parts := strings.Split(rel, "/")
	if rel == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "qr") {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	blob, ok := deps.Exports.Lookup(parts[0])
	if !ok {
		writeAPIError(w, http.StatusNotFound, "export_not_found", "export not found")
		return
	}

	if len(parts) == 2 {
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		code, err := render.LinkQRCode(absoluteURL(r, blob.URL), size)
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, "qr_failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(code)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(code)
		return
	}

	setDownloadHeaders(w, blob.Filename, blob.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Bytes)
}

// handlePreview serves the composed output as PNG, optionally downscaled to
// ?width= pixels.
func handlePreview(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	out, version, err := deps.Output.Output()
	if err != nil {
		writeAPIError(w, http.StatusConflict, "missing_surface", err.Error())
		return
	}
	var img image.Image = out
	if width, _ := strconv.Atoi(r.URL.Query().Get("width")); width > 0 && width < out.Bounds().Dx() {
		height := out.Bounds().Dy() * width / out.Bounds().Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, width, max(height, 1)))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), out, out.Bounds(), xdraw.Src, nil)
		img = scaled
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", strconv.Quote(strconv.FormatUint(version, 10)))
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		deps.Logger.Errorf("api", "preview encode: %v", err)
	}
}

func wantsSettle(r *http.Request) bool {
	settle, _ := strconv.ParseBool(r.URL.Query().Get("settle"))
	return settle
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

func setDownloadHeaders(w http.ResponseWriter, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func requireContentLength(r *http.Request) error {
	// Reject chunked/unknown length. We need Content-Length to bound the read.
	if r.ContentLength <= 0 {
		return errLengthRequired
	}
	return nil
}

var errLengthRequired = errors.New("Content-Length header is required")

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
