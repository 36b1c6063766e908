package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sehlabs.com/history/internal/entity"
	"sehlabs.com/history/internal/store"
	"sehlabs.com/history/internal/version"
)

func speakPlainTextTo(w http.ResponseWriter) {
	w.Header().Add("Content-Type", "text/plain")
}

func speakJSONTo(w http.ResponseWriter) {
	w.Header().Add("Content-Type", "application/json")
}

func respondWithStatus(w http.ResponseWriter, statusCode int, format string, a ...interface{}) {
	speakPlainTextTo(w)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, format, a...)
	fmt.Fprintln(w)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, store.ErrEntityDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEntityDeleted):
		return http.StatusGone
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, store.ErrOutOfOrder):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode := statusCodeFor(err)
	if statusCode == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}
	respondWithStatus(w, statusCode, "%v", err)
}

func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, v interface{}) {
	speakJSONTo(w)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", zap.Error(err))
	}
}

type versionResponse struct {
	Type      string            `json:"type"`
	ID        version.ObjectID  `json:"id"`
	Version   uint32            `json:"version"`
	Changeset uint32            `json:"changeset"`
	Timestamp version.Timestamp `json:"timestamp"`
	Visible   bool              `json:"visible"`
	User      string            `json:"user,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

func describeVersion(o *entity.Object) versionResponse {
	return versionResponse{
		Type:      o.Type().String(),
		ID:        o.ID(),
		Version:   uint32(o.Version()),
		Changeset: uint32(o.Changeset()),
		Timestamp: o.Timestamp(),
		Visible:   o.Visible(),
		User:      o.User(),
		Tags:      o.Tags(),
	}
}

type windowResponse struct {
	versionResponse
	Start version.Timestamp `json:"start"`
	// NB: End is absent for the last version, which remains valid indefinitely.
	End       *version.Timestamp `json:"end,omitempty"`
	First     bool               `json:"first"`
	Last      bool               `json:"last"`
	VisibleAt *bool              `json:"visible_at,omitempty"`
}

func describeWindow(w store.Window) windowResponse {
	r := windowResponse{
		versionResponse: describeVersion(w.Curr()),
		Start:           w.StartTime(),
		First:           w.IsFirst(),
		Last:            w.IsLast(),
	}
	if !w.IsLast() {
		end := w.EndTime()
		r.End = &end
	}
	return r
}

func describeWindows(windows []store.Window) []windowResponse {
	responses := make([]windowResponse, len(windows))
	for i, w := range windows {
		responses[i] = describeWindow(w)
	}
	return responses
}

const pathPrefix = "/entity/"

func getTargetKey(w http.ResponseWriter, req *http.Request) (entity.Key, bool) {
	rest, ok := strings.CutPrefix(req.URL.Path, pathPrefix)
	if ok && len(rest) > 0 {
		if key, err := entity.ParseKey(rest); err == nil {
			return key, true
		}
	}
	respondWithStatus(w, http.StatusBadRequest, "URL path must end with an entity key of the form type/id")
	return entity.Key{}, false
}

type formValueParser struct {
	req *http.Request
	err error
}

func (p *formValueParser) timestamp(name string) version.Timestamp {
	if p.err != nil {
		return 0
	}
	s := p.req.FormValue(name)
	if len(s) == 0 {
		p.err = fmt.Errorf("HTTP form key %q must be nonempty", name)
		return 0
	}
	ts, err := version.ParseTimestamp(s)
	if err != nil {
		p.err = fmt.Errorf("HTTP form key %q: %w", name, err)
	}
	return ts
}

func (p *formValueParser) number(name string, required bool) uint32 {
	if p.err != nil {
		return 0
	}
	s := p.req.FormValue(name)
	if len(s) == 0 {
		if required {
			p.err = fmt.Errorf("HTTP form key %q must be nonempty", name)
		}
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		p.err = fmt.Errorf("HTTP form key %q value %q is not a 32-bit unsigned integer", name, s)
	}
	return uint32(n)
}

func (p *formValueParser) tags() map[string]string {
	if p.err != nil {
		return nil
	}
	pairs := p.req.Form["tag"]
	if len(pairs) == 0 {
		return nil
	}
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || len(k) == 0 {
			p.err = fmt.Errorf("HTTP form key \"tag\" value %q must take the form key=value", pair)
			return nil
		}
		tags[k] = v
	}
	return tags
}

func handleGet(ctx context.Context, w http.ResponseWriter, req *http.Request, db database, logger *zap.Logger) {
	key, ok := getTargetKey(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	parser := formValueParser{req: req}
	switch {
	case query.Has("at"):
		at := parser.timestamp("at")
		if parser.err != nil {
			respondWithStatus(w, http.StatusBadRequest, "%v", parser.err)
			return
		}
		window, err := db.WindowAt(ctx, key, at)
		if err != nil {
			respondWithError(w, logger, err)
			return
		}
		r := describeWindow(window)
		visible := window.IsVisibleAt(at)
		r.VisibleAt = &visible
		respondWithJSON(w, logger, http.StatusOK, r)
	case query.Has("from") || query.Has("to"):
		from := parser.timestamp("from")
		to := parser.timestamp("to")
		if parser.err != nil {
			respondWithStatus(w, http.StatusBadRequest, "%v", parser.err)
			return
		}
		windows, err := db.Between(ctx, key, from, to)
		if err != nil {
			respondWithError(w, logger, err)
			return
		}
		respondWithJSON(w, logger, http.StatusOK, describeWindows(windows))
	default:
		windows, err := db.Windows(ctx, key)
		if err != nil {
			respondWithError(w, logger, err)
			return
		}
		respondWithJSON(w, logger, http.StatusOK, describeWindows(windows))
	}
}

func handlePost(ctx context.Context, w http.ResponseWriter, req *http.Request, db database, logger *zap.Logger) {
	if err := req.ParseForm(); err != nil {
		respondWithStatus(w, http.StatusBadRequest, "Failed to parse HTTP form: %v", err)
		return
	}
	key, ok := getTargetKey(w, req)
	if !ok {
		return
	}
	parser := formValueParser{req: req}
	attrs := entity.Attributes{
		Type:      key.Type,
		ID:        key.ID,
		Version:   version.VersionNumber(parser.number("version", true)),
		Changeset: version.ChangesetID(parser.number("changeset", false)),
		Timestamp: parser.timestamp("timestamp"),
		User:      req.FormValue("user"),
		Tags:      parser.tags(),
	}
	if parser.err != nil {
		respondWithStatus(w, http.StatusBadRequest, "%v", parser.err)
		return
	}
	o := entity.New(attrs)
	if err := db.Append(ctx, o); err != nil {
		respondWithError(w, logger, err)
		return
	}
	respondWithJSON(w, logger, http.StatusCreated, describeVersion(o))
}

func handleDelete(ctx context.Context, w http.ResponseWriter, req *http.Request, db database, logger *zap.Logger) {
	key, ok := getTargetKey(w, req)
	if !ok {
		return
	}
	parser := formValueParser{req: req}
	changeset := version.ChangesetID(parser.number("changeset", false))
	ts := parser.timestamp("timestamp")
	if parser.err != nil {
		respondWithStatus(w, http.StatusBadRequest, "%v", parser.err)
		return
	}
	tomb, err := db.Delete(ctx, key, changeset, ts, req.FormValue("user"))
	if err != nil {
		respondWithError(w, logger, err)
		return
	}
	respondWithJSON(w, logger, http.StatusOK, describeVersion(tomb))
}

func makeHandler(db database, logger *zap.Logger) http.Handler {
	var mux http.ServeMux
	{
		mux.Handle(pathPrefix,
			http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				switch req.Method {
				case http.MethodGet:
					handleGet(req.Context(), w, req, db, logger)
				case http.MethodPost:
					handlePost(req.Context(), w, req, db, logger)
				case http.MethodDelete:
					handleDelete(req.Context(), w, req, db, logger)
				default:
					respondWithStatus(w, http.StatusMethodNotAllowed, "Request uses disallowed HTTP method %q", req.Method)
				}
			}))
	}
	return &mux
}
