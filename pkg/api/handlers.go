package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
	"github.com/ssargent/sasinspect/pkg/ledger"
	"github.com/ssargent/sasinspect/pkg/scan"
	"github.com/ssargent/sasinspect/pkg/storage"
)

// maxDecodeBody bounds POST /decode bodies. SAS accounts are at most 10 MiB.
const maxDecodeBody = 10 << 20

// Server holds the API server state
type Server struct {
	inspector Inspector
	strict    *codec.RecordCodec
	config    ServerConfig
	metrics   *Metrics
}

// NewServer creates a new API server
func NewServer(inspector Inspector, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		inspector: inspector,
		strict:    codec.NewRecordCodec(codec.WithStrictUTF8()),
		config:    config,
		metrics:   metrics,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecode decodes a payload sent either as raw bytes or as JSON
// {"data": "<base64>"}
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDecodeBody+1))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxDecodeBody {
		sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	data := body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req DecodeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
			return
		}
		data, err = base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			sendError(w, "data must be base64", http.StatusBadRequest)
			return
		}
	}

	var report *inspect.Report
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		report, err = s.inspector.DecodeWith(s.strict, data)
	} else {
		report, err = s.inspector.Decode(data)
	}
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	if !report.Recognized {
		sendError(w, "unrecognized record: "+report.Kind, http.StatusUnprocessableEntity)
		return
	}

	sendSuccess(w, report)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	address, err := codec.ParseIdentifier(chi.URLParam(r, "address"))
	if err != nil {
		sendError(w, "Invalid account address", http.StatusBadRequest)
		return
	}

	opts := inspect.Options{}
	opts.SkipCache, _ = strconv.ParseBool(r.URL.Query().Get("fresh"))

	report, err := s.inspector.InspectAccount(r.Context(), address, opts)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	sendSuccess(w, report)
}

// handleBlockRecord returns the first program account created in a block,
// or all of them with ?all=true
func (s *Server) handleBlockRecord(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.ParseUint(chi.URLParam(r, "slot"), 10, 64)
	if err != nil {
		sendError(w, "Invalid slot", http.StatusBadRequest)
		return
	}

	opts := inspect.Options{}
	opts.All, _ = strconv.ParseBool(r.URL.Query().Get("all"))

	reports, err := s.inspector.InspectSlot(r.Context(), slot, opts)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	if opts.All {
		sendSuccess(w, reports)
		return
	}
	sendSuccess(w, reports[0])
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	report, err := s.inspector.Report(id)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	sendSuccess(w, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ids, err := s.inspector.Reports(limit)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	if ids == nil {
		ids = []ksuid.KSUID{}
	}
	sendSuccess(w, ReportList{IDs: ids})
}

// sendFailure maps an inspection error to a status code
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && s.config.Logger != nil {
		s.config.Logger.Errorw("request failed", "status", status, "error", err)
	}
	sendError(w, err.Error(), status)
}

func statusFor(err error) int {
	var (
		rpcErr  *ledger.RPCError
		httpErr *ledger.HTTPError
	)
	switch {
	case codec.IsUnrecognized(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, codec.ErrEmptyBuffer),
		errors.Is(err, codec.ErrOutOfBounds),
		errors.Is(err, codec.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, scan.ErrNoMatch),
		errors.Is(err, scan.ErrNoBlock),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &rpcErr):
		if rpcErr.Code == ledger.CodeBlockNotAvailable ||
			rpcErr.Code == ledger.CodeSlotSkipped ||
			rpcErr.Code == ledger.CodeLongTermStorageSlotSkipped {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &httpErr),
		errors.Is(err, ledger.ErrUnsupportedEncoding):
		return http.StatusBadGateway
	case errors.Is(err, inspect.ErrNoLedger), errors.Is(err, inspect.ErrNoStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
