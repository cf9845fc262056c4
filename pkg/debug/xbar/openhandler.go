package xbar

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/omeyang/xbar/pkg/observability/xlog"
)

// OpenHandler 按 id 读取、列出或清空已保存的快照，供前端加载历史请求。
//
//	?op=get&id=<id>
//	?op=find&max=&offset=&method=&uri=&ip=
//	?op=clear
type OpenHandler struct {
	storage Storage
	logger  xlog.Logger
}

// NewOpenHandler 创建检索端点。storage 为 nil 时所有请求返回 404。
func NewOpenHandler(storage Storage, logger xlog.Logger) *OpenHandler {
	if logger == nil {
		logger = xlog.Discard()
	}
	return &OpenHandler{storage: storage, logger: logger}
}

func (h *OpenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeJSONError(w, http.StatusNotFound, ErrNoStorage.Error())
		return
	}

	q := r.URL.Query()
	switch op := q.Get("op"); op {
	case "get":
		h.get(w, r, q.Get("id"))
	case "", "find":
		h.find(w, r)
	case "clear":
		h.clear(w, r)
	default:
		writeJSONError(w, http.StatusBadRequest, "unknown op "+strconv.Quote(op))
	}
}

func (h *OpenHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	snap, err := h.storage.Get(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "snapshot not found")
	case err != nil:
		h.fail(w, r, "get", err)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *OpenHandler) find(w http.ResponseWriter, r *http.Request) {
	finder, ok := h.storage.(Finder)
	if !ok {
		writeJSONError(w, http.StatusNotImplemented, ErrUnsupported.Error()+": find")
		return
	}
	q := r.URL.Query()
	f := Filter{
		Max:    atoiDefault(q.Get("max"), DefaultFindMax),
		Offset: atoiDefault(q.Get("offset"), 0),
		Method: q.Get("method"),
		URI:    q.Get("uri"),
		IP:     q.Get("ip"),
	}
	metas, err := finder.Find(r.Context(), f.Normalize())
	if err != nil {
		h.fail(w, r, "find", err)
		return
	}
	if metas == nil {
		metas = []Meta{}
	}
	writeJSON(w, http.StatusOK, metas)
}

func (h *OpenHandler) clear(w http.ResponseWriter, r *http.Request) {
	clearer, ok := h.storage.(Clearer)
	if !ok {
		writeJSONError(w, http.StatusNotImplemented, ErrUnsupported.Error()+": clear")
		return
	}
	if err := clearer.Clear(r.Context()); err != nil {
		h.fail(w, r, "clear", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *OpenHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn(internalContext(r.Context()), "open handler failed", xlog.Component("xbar"), slog.String("op", op), xlog.Err(err))
	writeJSONError(w, http.StatusInternalServerError, "storage error")
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
