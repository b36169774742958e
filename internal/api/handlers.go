package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/timada-org/todo/internal/todo"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// student gates a scoped route on the :ra segment naming a known student.
func (app *App) student(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		err := app.service.Authorize(r.Context(), p.ByName("ra"))
		if errors.Is(err, todo.ErrUnknownStudent) {
			failure(w, http.StatusUnauthorized, msgUnknownRA)
			return
		}

		if err != nil {
			app.log.Error("failed to check student", zap.String("ra", p.ByName("ra")), zap.Error(err))
			failure(w, http.StatusInternalServerError, msgQueryFailed)
			return
		}

		next(w, r, p)
	}
}

func (app *App) list() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		items, err := app.service.List(r.Context(), p.ByName("ra"))
		if err != nil {
			app.log.Error("failed to list items", zap.Error(err))
			failure(w, http.StatusInternalServerError, msgQueryFailed)
			return
		}

		writeJSON(w, http.StatusOK, &listResponse{Status: statusOK, Items: items})
	}
}

func (app *App) add() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		raw, received, ok := decodeBody(r)
		if !ok {
			invalid(w, received)
			return
		}

		_, err := app.service.Add(r.Context(), p.ByName("ra"), raw)

		var verr *todo.ValidationError
		switch {
		case errors.As(err, &verr):
			app.log.Debug("rejected item", zap.Error(err))
			invalid(w, received)
		case errors.Is(err, todo.ErrNotPersisted):
			app.log.Error("failed to add item", zap.Error(err))
			failure(w, http.StatusInternalServerError, msgInsertFailed)
		case err != nil:
			app.log.Error("failed to add item", zap.Error(err))
			failure(w, http.StatusInternalServerError, msgQueryFailed)
		default:
			success(w)
		}
	}
}

func (app *App) update() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		raw, received, ok := decodeBody(r)
		if !ok {
			invalid(w, received)
			return
		}

		err := app.service.Update(r.Context(), p.ByName("ra"), raw)

		var verr *todo.ValidationError
		switch {
		case errors.As(err, &verr):
			app.log.Debug("rejected item", zap.Error(err))
			invalid(w, received)
		case errors.Is(err, todo.ErrNotFound), errors.Is(err, todo.ErrNotPersisted):
			app.log.Debug("item not updated", zap.Error(err))
			failure(w, http.StatusInternalServerError, msgUpdateFailed)
		case err != nil:
			app.log.Error("failed to update item", zap.Error(err))
			failure(w, http.StatusInternalServerError, msgQueryFailed)
		default:
			success(w)
		}
	}
}

func (app *App) remove() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
		if err != nil {
			failure(w, http.StatusInternalServerError, msgRemoveFailed)
			return
		}

		err = app.service.Remove(r.Context(), p.ByName("ra"), id)
		switch {
		case errors.Is(err, todo.ErrNotFound):
			failure(w, http.StatusInternalServerError, msgRemoveFailed)
		case err != nil:
			app.log.Error("failed to remove item", zap.Int64("id", id), zap.Error(err))
			failure(w, http.StatusInternalServerError, msgQueryFailed)
		default:
			success(w)
		}
	}
}

func (app *App) item() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
		if err != nil {
			failure(w, http.StatusInternalServerError, msgItemNotFound)
			return
		}

		item, err := app.service.Get(r.Context(), p.ByName("ra"), id)
		if err != nil {
			if !errors.Is(err, todo.ErrNotFound) {
				app.log.Error("failed to get item by id", zap.Int64("id", id), zap.Error(err))
			}
			failure(w, http.StatusInternalServerError, msgItemNotFound)
			return
		}

		writeJSON(w, http.StatusOK, &itemResponse{Status: statusOK, Item: item})
	}
}

// decodeBody reads a JSON object. An empty body is an empty object. The
// second result is the body as echoed back in validation failures.
func decodeBody(r *http.Request) (map[string]any, string, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, "", false
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, "{}", true
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		return nil, strings.TrimSpace(string(body)), false
	}

	received, err := json.Marshal(raw)
	if err != nil {
		return nil, strings.TrimSpace(string(body)), false
	}

	return raw, string(received), true
}
