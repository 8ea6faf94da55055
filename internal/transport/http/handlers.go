package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"vibetorrent/internal/application/livesync"
	torrentapp "vibetorrent/internal/application/torrent"
	torrentdomain "vibetorrent/internal/domain/torrent"
	"vibetorrent/internal/logger"
)

type torrentUseCases interface {
	Status() torrentdomain.ConnectionStatus
	TestConnection(ctx context.Context) error
	List(ctx context.Context) ([]torrentdomain.Torrent, error)
	SystemInfo(ctx context.Context) (torrentdomain.SystemInfo, error)
	Details(ctx context.Context, hash string) (torrentapp.Details, error)
	AddURL(ctx context.Context, raw string, opts torrentdomain.AddOptions) error
	AddTorrent(ctx context.Context, r io.Reader, opts torrentdomain.AddOptions) error
	Apply(ctx context.Context, hash string, action torrentapp.Action) error
	Remove(ctx context.Context, hash string) error
	SetLabel(ctx context.Context, hash, label string) error
	Priority(ctx context.Context, hash string) (int64, error)
	SetPriority(ctx context.Context, hash string, priority int) error
	SetFilePriority(ctx context.Context, hash string, index, priority int) error
	SetDownloadLimit(ctx context.Context, kib int64) error
	SetUploadLimit(ctx context.Context, kib int64) error
}

type liveSync interface {
	Register(ctx context.Context, sink livesync.Sink) (string, error)
	Unregister(id string)
	Connected() bool
	SubscriberCount() int
}

type Handler struct {
	torrents    torrentUseCases
	live        liveSync
	logger      *logger.Logger
	eventBuffer int
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(torrentService torrentUseCases, live liveSync, log *logger.Logger, eventBuffer int) *Handler {
	return &Handler{
		torrents:    torrentService,
		live:        live,
		logger:      log.Component("http"),
		eventBuffer: eventBuffer,
	}
}

type addRequest struct {
	URL       string `json:"url"`
	Directory string `json:"directory"`
	Label     string `json:"label"`
	Priority  *int   `json:"priority"`
	Paused    bool   `json:"paused"`
}

func (a addRequest) options() torrentdomain.AddOptions {
	return torrentdomain.AddOptions{
		Directory: strings.TrimSpace(a.Directory),
		Label:     strings.TrimSpace(a.Label),
		Priority:  a.Priority,
		Paused:    a.Paused,
	}
}

type labelRequest struct {
	Label string `json:"label"`
}

type priorityRequest struct {
	Priority *int `json:"priority"`
}

type limitRequest struct {
	Limit *int64 `json:"limit"`
}

// ListTorrents handles GET /api/torrents.
func (h *Handler) ListTorrents(w http.ResponseWriter, r *http.Request) {
	items, err := h.torrents.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []torrentdomain.Torrent{}
	}
	writeJSON(w, http.StatusOK, items)
}

// TorrentDetails handles GET /api/torrents/{hash}.
func (h *Handler) TorrentDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.torrents.Details(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// AddTorrent handles POST /api/torrents. A multipart body carries a
// .torrent file in the "torrent" field; a JSON body carries a URL.
func (h *Handler) AddTorrent(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.addTorrentFile(w, r)
		return
	}

	var req addRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.torrents.AddURL(r.Context(), req.URL, req.options()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) addTorrentFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, torrentapp.MaxTorrentFileSize+1<<20)
	if err := r.ParseMultipartForm(torrentapp.MaxTorrentFileSize); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("torrent")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".torrent" {
		writeError(w, http.StatusBadRequest, errors.New("invalid torrent file"))
		return
	}

	req := addRequest{
		Directory: r.FormValue("directory"),
		Label:     r.FormValue("label"),
		Paused:    r.FormValue("paused") == "true" || r.FormValue("paused") == "1",
	}
	if raw := r.FormValue("priority"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, torrentapp.ErrInvalidPriority)
			return
		}
		req.Priority = &p
	}

	if err := h.torrents.AddTorrent(r.Context(), file, req.options()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// TorrentAction handles POST /api/torrents/{hash}/{action}.
func (h *Handler) TorrentAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.torrents.Apply(r.Context(), vars["hash"], torrentapp.Action(vars["action"])); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// RemoveTorrent handles DELETE /api/torrents/{hash}.
func (h *Handler) RemoveTorrent(w http.ResponseWriter, r *http.Request) {
	if err := h.torrents.Remove(r.Context(), mux.Vars(r)["hash"]); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// SetLabel handles POST /api/torrents/{hash}/label.
func (h *Handler) SetLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.torrents.SetLabel(r.Context(), mux.Vars(r)["hash"], req.Label); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// GetPriority handles GET /api/torrents/{hash}/priority.
func (h *Handler) GetPriority(w http.ResponseWriter, r *http.Request) {
	priority, err := h.torrents.Priority(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"priority": priority})
}

// SetPriority handles POST /api/torrents/{hash}/priority.
func (h *Handler) SetPriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := decodeBody(r, &req); err != nil || req.Priority == nil {
		writeError(w, http.StatusBadRequest, torrentapp.ErrInvalidPriority)
		return
	}
	if err := h.torrents.SetPriority(r.Context(), mux.Vars(r)["hash"], *req.Priority); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// SetFilePriority handles POST /api/torrents/{hash}/files/{index}/priority.
func (h *Handler) SetFilePriority(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, torrentapp.ErrInvalidIndex)
		return
	}
	var req priorityRequest
	if err := decodeBody(r, &req); err != nil || req.Priority == nil {
		writeError(w, http.StatusBadRequest, torrentapp.ErrInvalidPriority)
		return
	}
	if err := h.torrents.SetFilePriority(r.Context(), vars["hash"], index, *req.Priority); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// SetDownloadLimit handles POST /api/settings/download-limit.
func (h *Handler) SetDownloadLimit(w http.ResponseWriter, r *http.Request) {
	h.setLimit(w, r, h.torrents.SetDownloadLimit)
}

// SetUploadLimit handles POST /api/settings/upload-limit.
func (h *Handler) SetUploadLimit(w http.ResponseWriter, r *http.Request) {
	h.setLimit(w, r, h.torrents.SetUploadLimit)
}

func (h *Handler) setLimit(w http.ResponseWriter, r *http.Request, set func(context.Context, int64) error) {
	var req limitRequest
	if err := decodeBody(r, &req); err != nil || req.Limit == nil {
		writeError(w, http.StatusBadRequest, torrentapp.ErrInvalidLimit)
		return
	}
	if err := set(r.Context(), *req.Limit); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// SystemInfo handles GET /api/system.
func (h *Handler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.torrents.SystemInfo(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.torrents.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":     status.Connected,
		"error":         status.LastError,
		"liveConnected": h.live.Connected(),
		"subscribers":   h.live.SubscriberCount(),
	})
}

// TestConnection handles GET /api/test.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.torrents.TestConnection(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// fail maps use-case errors to a status code and logs upstream failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, torrentapp.ErrInvalidHash),
		errors.Is(err, torrentapp.ErrInvalidURL),
		errors.Is(err, torrentapp.ErrEmptyTorrent),
		errors.Is(err, torrentapp.ErrInvalidPriority),
		errors.Is(err, torrentapp.ErrInvalidIndex),
		errors.Is(err, torrentapp.ErrInvalidLimit),
		errors.Is(err, torrentapp.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, torrentapp.ErrTorrentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, torrentdomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}
