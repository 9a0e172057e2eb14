package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"smartswap/native/loyalty"
	"smartswap/services/swapd/executor"
	"smartswap/services/swapd/quote"
	"smartswap/services/swapd/signer"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	body := map[string]string{"error": message}
	if id := traceIDFromContext(r.Context()); id != "" {
		body["trace_id"] = id
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// errorStatus maps domain errors to HTTP statuses.
func errorStatus(w http.ResponseWriter, err error) int {
	var qe *quote.Error
	if errors.As(err, &qe) {
		switch qe.Kind {
		case quote.KindValidation:
			return http.StatusBadRequest
		case quote.KindRateLimited:
			if qe.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(qe.RetryAfter.Seconds())))
			}
			return http.StatusTooManyRequests
		case quote.KindNoRoute:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	}
	switch {
	case errors.Is(err, executor.ErrWalletRequired):
		return http.StatusBadRequest
	case errors.Is(err, executor.ErrSigningDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, loyalty.ErrCampaignNotFound):
		return http.StatusNotFound
	case errors.Is(err, loyalty.ErrNoActiveCampaign):
		return http.StatusServiceUnavailable
	case errors.Is(err, signer.ErrUncertain):
		return http.StatusAccepted
	case errors.Is(err, signer.ErrRejected):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
