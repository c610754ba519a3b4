// Package server exposes the converter over HTTP: a minimal upload page, a
// download endpoint, and a JSON API. It is thin plumbing around the codec;
// every request owns its own value tree, so handlers need no locking.
package server

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mcncl/gotoon/internal/config"
	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/generator"
	"github.com/mcncl/gotoon/internal/parser"
)

// Server handles HTTP conversion requests.
type Server struct {
	cfg *config.Config
	gen *generator.Generator
	mux *http.ServeMux
}

// New builds a Server from cfg. The generator is configured once up front;
// it is stateless and shared across requests.
func New(cfg *config.Config) (*Server, error) {
	rename, err := cfg.KeyRenamer()
	if err != nil {
		return nil, errors.NewServerError("invalid configuration", err)
	}
	gen := generator.NewGenerator()
	gen.MaxDepth = cfg.MaxDepth
	gen.RenameKey = rename

	s := &Server{cfg: cfg, gen: gen, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/convert", s.handleAPIConvert)
	return s, nil
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP service on the configured address.
func (s *Server) ListenAndServe() error {
	fmt.Fprintf(os.Stderr, "gotoon server listening on %s\n", s.cfg.Server.Addr)
	if err := http.ListenAndServe(s.cfg.Server.Addr, s.mux); err != nil {
		return errors.NewServerError("server stopped", err)
	}
	return nil
}

const indexPage = `<!doctype html>
<html>
<head><title>gotoon - JSON to TOON</title></head>
<body>
<h1>Convert JSON to TOON</h1>
<form action="/upload" method="post" enctype="multipart/form-data">
<input type="file" name="file" accept=".json">
<button type="submit">Convert</button>
</form>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}

// handleUpload converts an uploaded .json file and answers with the TOON
// text as a file download named after the upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	toon, err := s.convert(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	downloadName := outputName(filename, s.cfg.Output.Extension)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	io.Copy(w, strings.NewReader(toon+"\n"))
}

type convertResponse struct {
	Success   bool   `json:"success"`
	TOON      string `json:"toon"`
	Filename  string `json:"filename"`
	Validated bool   `json:"validated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAPIConvert accepts either a multipart upload under the `file` field
// or a raw JSON body, and answers with a JSON envelope.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	var (
		filename string
		data     []byte
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		filename, data, err = s.readUpload(w, r)
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
		data, err = io.ReadAll(r.Body)
		filename = "converted.json"
		if err != nil {
			err = uploadReadError(err)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	toon, err := s.convert(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convertResponse{
		Success:   true,
		TOON:      toon,
		Filename:  outputName(filename, s.cfg.Output.Extension),
		Validated: s.cfg.Validate,
	})
}

// readUpload pulls the `file` part out of a multipart request, enforcing the
// size cap and the extension allow-list.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, uploadReadError(err)
	}
	defer file.Close()

	if header.Filename == "" {
		return "", nil, errors.NewInputError("no file selected", errors.ErrNoInput)
	}
	if !s.cfg.ExtensionAllowed(header.Filename) {
		return "", nil, errors.NewInputError(
			fmt.Sprintf("invalid file type %q, please upload a JSON file", filepath.Ext(header.Filename)),
			errors.ErrInvalidFilePath,
		)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, uploadReadError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil, errors.NewInputError("uploaded file is empty", errors.ErrFileEmpty)
	}
	return header.Filename, data, nil
}

// convert runs the codec pipeline over raw JSON bytes.
func (s *Server) convert(data []byte) (string, error) {
	value, err := parser.Parse(bytes.NewReader(data), s.cfg.MaxDepth)
	if err != nil {
		return "", err
	}
	if s.cfg.Validate {
		return s.gen.EncodeVerified(value)
	}
	return s.gen.Encode(value)
}

// writeError maps pipeline errors onto HTTP status codes: client-side input
// problems are 4xx, the encoder invariant and everything unknown are 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case isRequestTooLarge(err):
		status = http.StatusRequestEntityTooLarge
	case stderrors.Is(err, errors.ErrInvalidJSON),
		stderrors.Is(err, errors.ErrEmptyInput),
		stderrors.Is(err, errors.ErrMultipleJSON),
		stderrors.Is(err, errors.ErrNoInput),
		stderrors.Is(err, errors.ErrFileEmpty),
		stderrors.Is(err, errors.ErrInvalidFilePath),
		stderrors.Is(err, errors.ErrDepthExceeded):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Error: errors.UserFriendlyError(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write response: %v\n", err)
	}
}

var errTooLarge = stderrors.New("request body too large")

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errors.NewInputError(
			fmt.Sprintf("file is too large, maximum size is %d bytes", maxErr.Limit),
			errTooLarge,
		)
	}
	return errors.NewInputError("failed to read upload", err)
}

func isRequestTooLarge(err error) bool {
	return stderrors.Is(err, errTooLarge)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// sanitizeFilename reduces an uploaded filename to a safe basename: path
// separators gone, anything outside [A-Za-z0-9_.-] collapsed to underscores,
// leading dots and dashes stripped.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._-")
	if name == "" {
		return "upload"
	}
	return name
}

// outputName derives the download filename from the upload, swapping the
// extension.
func outputName(uploadName, ext string) string {
	base := sanitizeFilename(uploadName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "converted"
	}
	return base + ext
}
