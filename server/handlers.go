package server

import (
	"encoding/json"
	"net/http"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/channel"
	"github.com/chrisvdg/linkswap/checker"
	log "github.com/sirupsen/logrus"
)

// maxRequestSize bounds the body of a channel request
const maxRequestSize = 64 * 1024

func newHandlers(c checker.Checker, ca *cache.Cache) *handlers {
	return &handlers{
		checker: c,
		cache:   ca,
	}
}

type handlers struct {
	checker checker.Checker
	cache   *cache.Cache
}

// CheckHandler answers channel requests
// Every request gets exactly one response, undecodable ones included.
func (h *handlers) CheckHandler(res http.ResponseWriter, req *http.Request) {
	var r channel.Request
	err := json.NewDecoder(http.MaxBytesReader(res, req.Body, maxRequestSize)).Decode(&r)
	if err != nil {
		log.Debugf("failed to decode channel request: %s", err)
		writeJSON(res, channel.Response{})
		return
	}

	writeJSON(res, channel.Dispatch(req.Context(), h.checker, r))
}

// CacheHandler dumps the existence cache
func (h *handlers) CacheHandler(res http.ResponseWriter, req *http.Request) {
	data, err := h.cache.Snapshot()
	if err != nil {
		log.Errorf("failed to snapshot cache: %s", err)
		res.WriteHeader(http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	_, _ = res.Write(data)
}

// HealthHandler reports the server is up
func (h *handlers) HealthHandler(res http.ResponseWriter, req *http.Request) {
	res.WriteHeader(http.StatusNoContent)
}

func writeJSON(res http.ResponseWriter, v interface{}) {
	res.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(res).Encode(v)
	if err != nil {
		log.Errorf("failed to write response: %s", err)
	}
}
