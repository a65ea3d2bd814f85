package gateway

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dbgateway/internal/logging"
	"dbgateway/internal/metadata"
	"dbgateway/internal/naming"
	"dbgateway/internal/qerr"
	"dbgateway/internal/querybuild"
)

// restHandler serves the flat REST surface under /api/. Collections are
// addressed by their pluralized entity name; rows by primary key values in
// path order, comma-separated for composite keys.
type restHandler struct {
	engine   *Engine
	store    *metadata.Store
	logger   *logging.Logger
	entities map[string]string // collection name -> entity name
}

func newRestHandler(store *metadata.Store, namer *naming.Namer, engine *Engine, logger *logging.Logger) *restHandler {
	entities := make(map[string]string)
	for _, entity := range store.Entities() {
		entities[namer.CollectionName(entity)] = entity
	}
	return &restHandler{
		engine:   engine,
		store:    store,
		logger:   logger,
		entities: entities,
	}
}

func (h *restHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	collection, key := splitRestPath(r.URL.Path)
	entity, ok := h.entities[collection]
	if !ok {
		writeRestError(w, http.StatusNotFound, "unknown collection")
		return
	}

	switch {
	case r.Method == http.MethodGet && key == "":
		h.list(w, r, entity)
	case r.Method == http.MethodGet:
		h.get(w, r, entity, key)
	case r.Method == http.MethodPost && key == "":
		h.create(w, r, entity)
	case (r.Method == http.MethodPatch || r.Method == http.MethodPut) && key != "":
		h.update(w, r, entity, key)
	case r.Method == http.MethodDelete && key != "":
		h.delete(w, r, entity, key)
	default:
		writeRestError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *restHandler) list(w http.ResponseWriter, r *http.Request, entity string) {
	req := querybuild.RestRequest{
		Entity: entity,
		Fields: fieldsParam(r),
		After:  r.URL.Query().Get("after"),
	}
	if rawFirst := r.URL.Query().Get("first"); rawFirst != "" {
		first, err := strconv.Atoi(rawFirst)
		if err != nil {
			writeRestError(w, http.StatusBadRequest, "first must be an integer")
			return
		}
		req.First = first
	}

	raw, err := h.engine.RunRest(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeRestJSON(w, http.StatusOK, raw)
}

func (h *restHandler) get(w http.ResponseWriter, r *http.Request, entity, key string) {
	keys, err := h.keyValues(entity, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	raw, err := h.engine.RunRest(r.Context(), querybuild.RestRequest{
		Entity:    entity,
		Fields:    fieldsParam(r),
		KeyValues: keys,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if isNullDocument(raw) {
		writeRestError(w, http.StatusNotFound, "not found")
		return
	}
	writeRestJSON(w, http.StatusOK, raw)
}

func (h *restHandler) create(w http.ResponseWriter, r *http.Request, entity string) {
	values, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.engine.Insert(r.Context(), entity, values)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeRow(w, r, http.StatusCreated, row)
}

func (h *restHandler) update(w http.ResponseWriter, r *http.Request, entity, key string) {
	keys, err := h.keyValues(entity, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	values, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.engine.Update(r.Context(), entity, stringValues(keys), values)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if row == nil {
		writeRestError(w, http.StatusNotFound, "not found")
		return
	}
	h.writeRow(w, r, http.StatusOK, row)
}

func (h *restHandler) delete(w http.ResponseWriter, r *http.Request, entity, key string) {
	keys, err := h.keyValues(entity, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.engine.Delete(r.Context(), entity, stringValues(keys))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if row == nil {
		writeRestError(w, http.StatusNotFound, "not found")
		return
	}
	h.writeRow(w, r, http.StatusOK, row)
}

// keyValues maps path key segments onto the entity's primary key columns.
func (h *restHandler) keyValues(entity, key string) (map[string]string, error) {
	table, err := h.store.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(key, ",")
	if len(parts) != len(table.PrimaryKey) {
		return nil, qerr.BadRequest("entity %s requires %d key value(s)", entity, len(table.PrimaryKey))
	}
	keys := make(map[string]string, len(parts))
	for i, pk := range table.PrimaryKey {
		keys[pk] = parts[i]
	}
	return keys, nil
}

func (h *restHandler) writeRow(w http.ResponseWriter, r *http.Request, status int, row map[string]interface{}) {
	body, err := json.Marshal(row)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeRestJSON(w, status, body)
}

func (h *restHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if qerr.IsBadRequest(err) {
		writeRestError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("error", err.Error()),
	)
	writeRestError(w, http.StatusInternalServerError, "internal error")
}

// splitRestPath extracts the collection and optional key from an /api/ path.
func splitRestPath(path string) (collection, key string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/api/"), "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	collection = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return collection, key
}

func fieldsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	out := fields[:0]
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	var values map[string]interface{}
	if err := decoder.Decode(&values); err != nil {
		return nil, qerr.BadRequest("request body must be a JSON object")
	}
	return values, nil
}

// stringValues converts path-derived key strings to the interface map the
// mutation pipeline coerces against column types.
func stringValues(keys map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(keys))
	for name, value := range keys {
		out[name] = value
	}
	return out
}

func writeRestJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeRestError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	writeRestJSON(w, status, body)
}

func isNullDocument(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
