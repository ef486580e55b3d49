// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/query"
	"github.com/blinklabs-io/suidex/sui"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

func isBadRequest(err error) bool {
	return errors.Is(err, query.ErrInvalidFilter) ||
		errors.Is(err, query.ErrInvalidLimit) ||
		errors.Is(err, query.ErrInvalidCursor) ||
		errors.Is(err, query.ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidPaginationParameters)
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrCheckpointNotFound) ||
		errors.Is(err, database.ErrTransactionNotFound) ||
		errors.Is(err, database.ErrObjectNotFound)
}

// writeQueryError maps an error from the query engine to a response. Only
// unexpected errors are logged.
func (s *Server) writeQueryError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	switch {
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(
			"request failed",
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to process request")
	}
}

// handleHealth handles GET /health and reports the watermark
func (s *Server) handleHealth(
	w http.ResponseWriter,
	r *http.Request,
) {
	resp := HealthResponse{IsHealthy: true}
	seq, ok, err := s.engine.GetLatestCheckpointSequenceNumber(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		resp.IsHealthy = false
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if ok {
		resp.Watermark = &seq
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestCheckpoint(
	w http.ResponseWriter,
	r *http.Request,
) {
	seq, ok, err := s.engine.GetLatestCheckpointSequenceNumber(r.Context())
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no checkpoint has been indexed")
		return
	}
	writeJSON(w, http.StatusOK, LatestCheckpointResponse{
		SequenceNumber: sui.Uint64(seq),
	})
}

func (s *Server) handleCheckpoint(
	w http.ResponseWriter,
	r *http.Request,
) {
	seq, err := strconv.ParseUint(r.PathValue("seq"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkpoint sequence number")
		return
	}
	cp, err := s.engine.GetCheckpoint(r.Context(), seq)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleTransaction(
	w http.ResponseWriter,
	r *http.Request,
) {
	tx, err := s.engine.GetTransaction(r.Context(), r.PathValue("digest"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionEvents(
	w http.ResponseWriter,
	r *http.Request,
) {
	events, err := s.engine.GetEventsByTransaction(r.Context(), r.PathValue("digest"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// transactionFilter builds a filter from the query string. At most one
// filter may be given; none matches every transaction.
func transactionFilter(r *http.Request) (query.TransactionFilter, error) {
	params := r.URL.Query()
	var filters []query.TransactionFilter
	if v := params.Get("from_address"); v != "" {
		filters = append(filters, query.FromAddress(v))
	}
	if v := params.Get("to_address"); v != "" {
		filters = append(filters, query.ToAddress(v))
	}
	if v := params.Get("changed_object"); v != "" {
		filters = append(filters, query.ChangedObject(v))
	}
	if v := params.Get("input_object"); v != "" {
		filters = append(filters, query.InputObject(v))
	}
	if v := params.Get("package"); v != "" {
		filters = append(
			filters,
			query.MoveFunction(v, params.Get("module"), params.Get("function")),
		)
	}
	if v := params.Get("digest"); v != "" {
		filters = append(filters, query.TransactionDigest(v))
	}
	switch len(filters) {
	case 0:
		return query.AllTransactions(), nil
	case 1:
		return filters[0], nil
	default:
		return query.TransactionFilter{}, errTooManyFilters
	}
}

var errTooManyFilters = errors.New("only one filter may be given")

func (s *Server) handleQueryTransactions(
	w http.ResponseWriter,
	r *http.Request,
) {
	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.engine.QueryTransactions(
		r.Context(),
		filter,
		params.Cursor,
		params.Limit,
		params.Descending,
	)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func eventFilter(r *http.Request) (query.EventFilter, error) {
	params := r.URL.Query()
	var filters []query.EventFilter
	if v := params.Get("sender"); v != "" {
		filters = append(filters, query.Sender(v))
	}
	if v := params.Get("transaction"); v != "" {
		filters = append(filters, query.Transaction(v))
	}
	if v := params.Get("package"); v != "" {
		filters = append(filters, query.MoveModule(v, params.Get("module")))
	}
	if v := params.Get("event_type"); v != "" {
		filters = append(filters, query.MoveEventType(v))
	}
	switch len(filters) {
	case 0:
		return query.AllEvents(), nil
	case 1:
		return filters[0], nil
	default:
		return query.EventFilter{}, errTooManyFilters
	}
}

func (s *Server) handleQueryEvents(
	w http.ResponseWriter,
	r *http.Request,
) {
	filter, err := eventFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cursor *sui.EventID
	if params.Cursor != nil {
		cursor, err = DecodeEventCursor(*params.Cursor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid event cursor")
			return
		}
	}
	page, err := s.engine.QueryEvents(
		r.Context(),
		filter,
		cursor,
		params.Limit,
		params.Descending,
	)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	resp := EventPage{
		Data:        page.Data,
		HasNextPage: page.HasNextPage,
	}
	if page.NextCursor != nil {
		tmp := EncodeEventCursor(*page.NextCursor)
		resp.NextCursor = &tmp
	}
	writeJSON(w, http.StatusOK, resp)
}

func objectOptions(r *http.Request) query.ObjectOptions {
	params := r.URL.Query()
	content, _ := strconv.ParseBool(params.Get("content"))
	bcs, _ := strconv.ParseBool(params.Get("bcs"))
	return query.ObjectOptions{ShowContent: content, ShowBcs: bcs}
}

func (s *Server) handleObject(
	w http.ResponseWriter,
	r *http.Request,
) {
	var version *uint64
	if v := r.URL.Query().Get("version"); v != "" {
		tmp, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid object version")
			return
		}
		version = &tmp
	}
	obj, err := s.engine.GetObject(
		r.Context(),
		r.PathValue("id"),
		version,
		objectOptions(r),
	)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleOwnedObjects(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.engine.GetOwnedObjects(
		r.Context(),
		r.PathValue("address"),
		params.Cursor,
		params.Limit,
		objectOptions(r),
	)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAddressCount(
	w http.ResponseWriter,
	r *http.Request,
) {
	count, err := s.engine.GetTotalAddressNumber(r.Context())
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: sui.Uint64(count)})
}
