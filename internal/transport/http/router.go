package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"vibetorrent/internal/metrics"
)

const hashPattern = "{hash:[0-9a-fA-F]{40}}"

// NewRouter configures HTTP routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recoverer, handler.withTraceID, handler.withLogging)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", handler.Events).Methods("GET")
	api.HandleFunc("/status", handler.Status).Methods("GET")
	api.HandleFunc("/test", handler.TestConnection).Methods("GET")
	api.HandleFunc("/system", handler.SystemInfo).Methods("GET")
	api.HandleFunc("/settings/download-limit", handler.SetDownloadLimit).Methods("POST")
	api.HandleFunc("/settings/upload-limit", handler.SetUploadLimit).Methods("POST")

	api.HandleFunc("/torrents", handler.ListTorrents).Methods("GET")
	api.HandleFunc("/torrents", handler.AddTorrent).Methods("POST")
	api.HandleFunc("/torrents/"+hashPattern, handler.TorrentDetails).Methods("GET")
	api.HandleFunc("/torrents/"+hashPattern, handler.RemoveTorrent).Methods("DELETE")
	api.HandleFunc("/torrents/"+hashPattern+"/label", handler.SetLabel).Methods("POST")
	api.HandleFunc("/torrents/"+hashPattern+"/priority", handler.GetPriority).Methods("GET")
	api.HandleFunc("/torrents/"+hashPattern+"/priority", handler.SetPriority).Methods("POST")
	api.HandleFunc("/torrents/"+hashPattern+"/files/{index:[0-9]+}/priority", handler.SetFilePriority).Methods("POST")
	api.HandleFunc("/torrents/"+hashPattern+"/{action:start|pause|stop|recheck|reannounce}", handler.TorrentAction).Methods("POST")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	return r
}

// WithCORS allows browser clients from origins.
func WithCORS(h http.Handler, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", traceIDHeader},
		ExposedHeaders: []string{traceIDHeader},
	})
	return c.Handler(h)
}
