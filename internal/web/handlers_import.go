package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/talkshelf/internal/core"
	"github.com/JonMunkholm/talkshelf/internal/logging"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 64 << 10

// handleImport merges an uploaded file into the store.
// The file is either the multipart field "file" or the raw request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.importFile(w, r, false)
}

// handlePreview reports what an import would do without writing.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.importFile(w, r, true)
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request, preview bool) {
	format, ok := core.LookupFormat(chi.URLParam(r, "format"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownFormat, chi.URLParam(r, "format")))
		return
	}

	fileName, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if fileName == "" {
		fileName = "upload" + format.Extensions[0]
	}

	req := core.ImportRequest{
		Format:   format.Key,
		FileName: fileName,
		Data:     data,
	}
	ctx := WithRequestMetadata(r.Context(), r)

	var result *core.ImportResult
	if preview {
		result, err = s.service.PreviewImport(ctx, req)
	} else {
		result, err = s.service.Import(ctx, req)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(ctx).Debug("import handled",
		"file", fileName,
		"preview", preview,
		"added", result.Added,
	)
	writeJSON(w, http.StatusOK, result)
}

// readUpload returns the uploaded file name and its cleaned contents.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Import.MaxFileSize

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := core.ReadUpload(r.Body, maxSize)
		if err != nil {
			return "", nil, err
		}
		return cleanName(r.URL.Query().Get("name")), data, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, fmt.Errorf("%w: exceeds %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return "", nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, core.ErrNoFile
	}
	defer file.Close()

	data, err := core.ReadUpload(file, maxSize)
	if err != nil {
		return "", nil, err
	}
	return cleanName(header.Filename), data, nil
}

// cleanName strips any directory part from a client-supplied file name.
func cleanName(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// handleFetchSessionize pulls talks from the configured Sessionize URL.
func (s *Server) handleFetchSessionize(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.FetchSessionize(WithRequestMetadata(r.Context(), r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.ImportHistory(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// formatInfo is the JSON view of an import format.
type formatInfo struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Extensions []string `json:"extensions"`
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	formats := core.Formats()
	out := make([]formatInfo, len(formats))
	for i, f := range formats {
		out[i] = formatInfo{Key: f.Key, Label: f.Label, Extensions: f.Extensions}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport downloads talks.csv, talks.json or settings.json.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		body        []byte
		fileName    string
		contentType string
		err         error
	)
	switch kind := chi.URLParam(r, "kind"); kind {
	case "csv":
		var text string
		text, err = s.service.ExportCSV(ctx)
		body, fileName, contentType = []byte(text), "talks.csv", "text/csv; charset=utf-8"
	case "json":
		body, err = s.service.ExportJSON(ctx)
		fileName, contentType = "talks.json", "application/json"
	case "settings":
		body, err = s.service.ExportSettings(ctx)
		fileName, contentType = "settings.json", "application/json"
	default:
		err = fmt.Errorf("%w: export %q", core.ErrUnknownFormat, kind)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
