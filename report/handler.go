package report

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/logging"
)

// DatasetsPath is the URL prefix served by Handler.
const DatasetsPath = "/v1/datasets"

// Entry is one item of the dataset index served at DatasetsPath.
type Entry struct {
	View   string `json:"view"`
	Metric string `json:"metric"`
	Label  string `json:"label"`
	URL    string `json:"url"`
}

// Handler serves the published matrices as JSON. The index is available at
// DatasetsPath and each matrix at DatasetsPath/<view>/<metric>.
type Handler struct {
	mu       sync.RWMutex
	payloads map[string]Payload
}

// NewHandler returns an empty Handler.
func NewHandler() *Handler {
	return &Handler{payloads: make(map[string]Payload)}
}

// Publish makes the matrices of view available, replacing any previous
// matrix with the same view and metric.
func (h *Handler) Publish(view string, ms []*dataset.Matrix) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range ms {
		h.payloads[view+"/"+m.Metric.String()] = NewPayload(view, m)
	}
}

// Index returns the published datasets sorted by view and metric.
func (h *Handler) Index() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := maps.Keys(h.payloads)
	slices.Sort(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		p := h.payloads[k]
		entries = append(entries, Entry{
			View:   p.View,
			Metric: p.Metric.String(),
			Label:  p.Label,
			URL:    DatasetsPath + "/" + k,
		})
	}
	return entries
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, DatasetsPath)
	if rest == r.URL.Path {
		http.NotFound(w, r)
		return
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		writeJSON(w, h.Index())
		return
	}
	h.mu.RLock()
	p, ok := h.payloads[rest]
	h.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, p)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Logger.WithError(err).Warn("report: cannot marshal response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
