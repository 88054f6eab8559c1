package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DecodeRequest is the JSON form of a decode request
type DecodeRequest struct {
	Data string `json:"data"` // base64
}

// ReportList is the response of GET /reports
type ReportList struct {
	IDs []ksuid.KSUID `json:"ids"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string

	// Registry receives the API metrics and backs /metrics. The default
	// Prometheus registry is used when nil.
	Registry *prometheus.Registry
	Logger   *zap.SugaredLogger
}

// Inspector is the part of inspect.Inspector the handlers use
type Inspector interface {
	Decode(data []byte) (*inspect.Report, error)
	DecodeWith(rc *codec.RecordCodec, data []byte) (*inspect.Report, error)
	InspectAccount(ctx context.Context, address codec.Identifier, opts inspect.Options) (*inspect.Report, error)
	InspectSlot(ctx context.Context, slot uint64, opts inspect.Options) ([]*inspect.Report, error)
	Report(id ksuid.KSUID) (*inspect.Report, error)
	Reports(limit int) ([]ksuid.KSUID, error)
}
