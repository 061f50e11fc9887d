// Package server is the local web viewer for produced annotation data: it
// browses JSON/image pairs, shows caption status, and exposes the
// auto-captioning and caption-update endpoints.
//
// The server is a single-process, local tool. Requests touch the filesystem
// without locking; concurrent caption updates to the same sidecar are
// last-writer-wins.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/MSHADroo/drag/internal/config"
	"github.com/MSHADroo/drag/internal/utils"
	"github.com/MSHADroo/drag/pkg/caption"
	"github.com/MSHADroo/drag/pkg/processing"
	"github.com/MSHADroo/drag/pkg/scanner"
	"github.com/MSHADroo/drag/pkg/store"
)

// Captioner describes a frame pair. Satisfied by caption.Service.
type Captioner interface {
	DescribePair(ctx context.Context, frame1, frame2 image.Image) (caption.Result, error)
}

// Server serves the annotation viewer.
type Server struct {
	cfg  *config.Config
	log  *slog.Logger
	scan *scanner.Scanner
	proc *processing.Processor
	mux  *http.ServeMux

	// captioner is resolved lazily so the model backend is only dialed
	// when a describe request arrives.
	captioner func() (Captioner, error)
}

// New builds a server over the configured data and static roots.
func New(cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  log,
		scan: &scanner.Scanner{Log: log},
		proc: processing.NewProcessor(),
		captioner: func() (Captioner, error) {
			return caption.Default(caption.Config{
				Backend:     cfg.Caption.Backend,
				URL:         cfg.Caption.URL,
				Model:       cfg.Caption.Model,
				SendFormat:  cfg.Caption.SendFormat,
				SendMaxDim:  cfg.Caption.SendMaxDim,
				SendQuality: cfg.Caption.SendQuality,
			})
		},
	}
	s.routes()
	return s
}

// SetCaptioner replaces the lazy default captioning service, mainly for
// tests.
func (s *Server) SetCaptioner(c Captioner) {
	s.captioner = func() (Captioner, error) { return c, nil }
}

func (s *Server) routes() {
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /with_caption", s.handleWithCaption)
	s.mux.HandleFunc("GET /no_json_images", s.handleNoJSONImages)
	s.mux.HandleFunc("POST /describe_images", s.handleDescribeImages)
	s.mux.HandleFunc("POST /update_caption", s.handleUpdateCaption)
	s.mux.HandleFunc("GET /overlay", s.handleOverlay)
	s.mux.Handle("GET /static/data/",
		http.StripPrefix("/static/data/", http.FileServer(http.Dir(s.cfg.Server.StaticDir))))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run mirrors new data files into the static tree, prunes empty data
// directories, and serves until the listener fails.
func (s *Server) Run() error {
	if err := utils.EnsureDir(s.cfg.Server.StaticDir); err != nil {
		return fmt.Errorf("failed to create static dir: %w", err)
	}
	if err := utils.MirrorTree(s.cfg.Server.DataDir, s.cfg.Server.StaticDir); err != nil {
		return fmt.Errorf("failed to mirror data into static dir: %w", err)
	}
	if err := utils.RemoveEmptyDirs(s.cfg.Server.DataDir); err != nil {
		s.log.Warn("failed to prune empty data directories", "error", err)
	}

	s.log.Info("viewer listening", "addr", s.cfg.Server.Addr, "data", s.cfg.Server.DataDir)
	return http.ListenAndServe(s.cfg.Server.Addr, s)
}

type pageData struct {
	Files           []scanner.Entry
	Dirs            []scanner.ImageGroup
	NoCaptionCount  int
	HasCaptionCount int
	NoJSONCount     int
}

// collect gathers everything the list pages show: both caption buckets and
// the directories that have images but no sidecar yet. Files is left for
// the handler to pick the bucket it lists.
func (s *Server) collect() (uncaptioned, captioned []scanner.Entry, data pageData, err error) {
	uncaptioned, captioned, err = s.scan.Classify(s.cfg.Server.DataDir)
	if err != nil {
		return nil, nil, pageData{}, fmt.Errorf("failed to classify annotations: %w", err)
	}
	groups, err := s.scan.Unannotated(s.cfg.Server.DataDir)
	if err != nil {
		return nil, nil, pageData{}, fmt.Errorf("failed to scan unannotated folders: %w", err)
	}
	data = pageData{
		Dirs:            groups,
		NoCaptionCount:  len(uncaptioned),
		HasCaptionCount: len(captioned),
		NoJSONCount:     len(groups),
	}
	return uncaptioned, captioned, data, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	uncaptioned, _, data, err := s.collect()
	if err != nil {
		s.renderError(w, err)
		return
	}
	data.Files = uncaptioned
	s.render(w, "index.html", data)
}

func (s *Server) handleWithCaption(w http.ResponseWriter, r *http.Request) {
	_, captioned, data, err := s.collect()
	if err != nil {
		s.renderError(w, err)
		return
	}
	data.Files = captioned
	s.render(w, "with_caption.html", data)
}

func (s *Server) handleNoJSONImages(w http.ResponseWriter, r *http.Request) {
	_, _, data, err := s.collect()
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "no_json_images.html", data)
}

type describeRequest struct {
	Image1Path string `json:"image1_path"`
	Image2Path string `json:"image2_path"`
}

type describeResponse struct {
	Success             bool   `json:"success"`
	Description1        string `json:"description1,omitempty"`
	Description2        string `json:"description2,omitempty"`
	CombinedDescription string `json:"combined_description,omitempty"`
	Message             string `json:"message,omitempty"`
}

func (s *Server) handleDescribeImages(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image1Path == "" || req.Image2Path == "" {
		s.writeJSON(w, http.StatusBadRequest, describeResponse{Success: false, Message: "Invalid data"})
		return
	}

	path1, err := s.resolveImage(req.Image1Path)
	if err != nil {
		s.writeJSON(w, http.StatusForbidden, describeResponse{Success: false, Message: "Access denied"})
		return
	}
	path2, err := s.resolveImage(req.Image2Path)
	if err != nil {
		s.writeJSON(w, http.StatusForbidden, describeResponse{Success: false, Message: "Access denied"})
		return
	}

	img1, err := s.proc.LoadImage(path1)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, describeResponse{Success: false, Message: err.Error()})
		return
	}
	img2, err := s.proc.LoadImage(path2)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, describeResponse{Success: false, Message: err.Error()})
		return
	}

	svc, err := s.captioner()
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, describeResponse{Success: false, Message: err.Error()})
		return
	}

	result, err := svc.DescribePair(r.Context(), img1, img2)
	if err != nil {
		s.log.Error("captioning failed", "image1", req.Image1Path, "image2", req.Image2Path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, describeResponse{Success: false, Message: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, describeResponse{
		Success:             true,
		Description1:        result.Description1,
		Description2:        result.Description2,
		CombinedDescription: result.Combined,
	})
}

type updateRequest struct {
	JSONFilePath string  `json:"json_file_path"`
	Caption      *string `json:"caption"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleUpdateCaption(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JSONFilePath == "" || req.Caption == nil {
		s.writeJSON(w, http.StatusBadRequest, updateResponse{Success: false, Message: "Invalid data"})
		return
	}

	err := store.UpdateCaption(s.cfg.Server.DataDir, req.JSONFilePath, *req.Caption)
	switch {
	case errors.Is(err, store.ErrAccessDenied):
		s.writeJSON(w, http.StatusForbidden, updateResponse{Success: false, Message: "Access denied"})
	case err != nil:
		s.writeJSON(w, http.StatusInternalServerError, updateResponse{Success: false, Message: err.Error()})
	default:
		s.log.Info("caption updated", "path", req.JSONFilePath)
		s.writeJSON(w, http.StatusOK, updateResponse{Success: true, Message: "Caption updated successfully"})
	}
}

// handleOverlay serves the 50/50 blend of a frame pair as JPEG for visual QA.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	path1, err1 := s.resolveImage(r.URL.Query().Get("frame1"))
	path2, err2 := s.resolveImage(r.URL.Query().Get("frame2"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	img1, err := s.proc.LoadImage(path1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	img2, err := s.proc.LoadImage(path2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, s.proc.CombineFrames(img1, img2), &jpeg.Options{Quality: 90}); err != nil {
		s.log.Error("overlay encode failed", "error", err)
	}
}

// resolveImage maps a client-supplied relative image path to a file under
// the static root, rejecting absolute paths and dot-dot segments.
func (s *Server) resolveImage(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty image path")
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute image path: %s", rel)
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path escapes image root: %s", rel)
		}
	}
	return filepath.Join(s.cfg.Server.StaticDir, filepath.FromSlash(path.Clean(slashed))), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	s.log.Error("page render failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
