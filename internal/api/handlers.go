package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"

	"github.com/meterstack/publish-bridge/internal/models"
)

// Validation error kinds. Kept to a fixed set so the invalid-datapoint
// counter's error label stays low-cardinality.
const (
	errMissingNameTag   = "missing name tag"
	errValueNotFinite   = "value is not finite"
	errInvalidTimestamp = "invalid timestamp"
)

// publishDocument is the inbound wire shape.
type publishDocument struct {
	Metrics []models.Datapoint `json:"metrics"`
}

// PublishSink accepts a classified publish request. Implemented by the bridge.
type PublishSink interface {
	Publish(req *models.PublishRequest)
}

// Handler serves the publish API.
type Handler struct {
	logger *slog.Logger
	sink   PublishSink
}

// NewHandler constructs the publish handler.
func NewHandler(logger *slog.Logger, sink PublishSink) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, sink: sink}
}

// HandlePublish decodes an inbound batch, splits it into valid datapoints and
// validation failures, and hands it to the bridge. The bridge's completion
// callback writes the response, exactly once per request.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()

	// An unparsable body yields an empty batch, which the bridge rejects
	// through the same empty-payload path as a batch with no datapoints.
	var doc publishDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.logger.Debug("unparsable publish payload",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		doc.Metrics = nil
	}

	values, failures := classifyDatapoints(doc.Metrics)

	h.sink.Publish(&models.PublishRequest{
		Values:   values,
		Failures: failures,
		Complete: func(status int, diag *models.Diagnostic) {
			if diag == nil {
				w.WriteHeader(status)
				return
			}
			h.logger.Debug("publish completed with diagnostic",
				slog.String("request_id", requestID),
				slog.Int("status", status),
				slog.Int("errors", diag.ErrorCount))
			writeJSON(w, status, diag)
		},
	})
}

// classifyDatapoints validates each datapoint, producing the per-datapoint
// pass/fail split the bridge consumes. Order is preserved in both lists.
func classifyDatapoints(datapoints []models.Datapoint) ([]models.Datapoint, []models.ValidationFailure) {
	var values []models.Datapoint
	var failures []models.ValidationFailure

	for _, dp := range datapoints {
		if kind := validateDatapoint(dp); kind != "" {
			failures = append(failures, models.ValidationFailure{Error: kind, Datapoint: dp})
			continue
		}
		values = append(values, dp)
	}
	return values, failures
}

func validateDatapoint(dp models.Datapoint) string {
	if dp.Tags["name"] == "" {
		return errMissingNameTag
	}
	if math.IsNaN(dp.Value) || math.IsInf(dp.Value, 0) {
		return errValueNotFinite
	}
	if dp.Timestamp <= 0 {
		return errInvalidTimestamp
	}
	return ""
}

// HandleHealthz reports liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
