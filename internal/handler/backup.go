package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/selpix/selpix/internal/backup"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger.With("component", "backup")}
}

func (h *BackupHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		fail(w, h.logger, action, err)
	}
}

// List reports the manager status and the stored snapshots. A disabled
// manager lists nothing.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	items := []backup.Object{}
	if h.manager.Configured() {
		objs, err := h.manager.List(r.Context())
		if err != nil {
			h.fail(w, "list backups", err)
			return
		}
		if objs != nil {
			items = objs
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": h.manager.Status(), "items": items})
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	obj, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.fail(w, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

// Download streams the encrypted snapshot named by the rest of the path.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, size, err := h.manager.Open(r.Context(), key)
	if err != nil {
		h.fail(w, "download backup", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "key", key, "error", err)
	}
}
