package ui

import (
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"

	"nyassess/domain/assessment"
	"nyassess/internal/export"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// StaticServer serves the files written by the exporter's DirSink, so the
// pre-materialized school payloads can be fetched without touching workbooks.
type StaticServer struct {
	router *chi.Mux
	sink   *export.DirSink
}

// NewStaticServer serves the export tree rooted at dir.
func NewStaticServer(dir string) *StaticServer {
	s := &StaticServer{
		router: chi.NewRouter(),
		sink:   export.NewDirSink(dir),
	}
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Get("/school-names.json", s.handleNames)
	s.router.Get("/schools/{subject}/{file}", s.handleSchool)
	return s
}

// Handler exposes the router
func (s *StaticServer) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails
func (s *StaticServer) Start(addr string) error {
	log.Printf("Serving exported payloads on http://%s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *StaticServer) handleNames(w http.ResponseWriter, r *http.Request) {
	serveJSONFile(w, r, s.sink.NamesPath())
}

func (s *StaticServer) handleSchool(w http.ResponseWriter, r *http.Request) {
	subject, err := assessment.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slug, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".json")
	if !ok || !slugPattern.MatchString(slug) {
		http.NotFound(w, r)
		return
	}
	serveJSONFile(w, r, s.sink.SchoolPath(subject, slug))
}

func serveJSONFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}
