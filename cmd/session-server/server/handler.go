package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	log "github.com/sirupsen/logrus"
)

// HandleIndex serves the session page.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(HTMLPage))
}

// HandleConfig serves the ICE servers used by the session page.
func HandleConfig(servers []webrtc.ICEServer) http.HandlerFunc {
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(servers); err != nil {
			log.WithError(err).Warn("failed to write ICE configuration")
		}
	}
}
