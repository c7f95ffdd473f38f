package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/types"
)

// WriteSuccess renders data in the success envelope with 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// publicMessageCodes may surface the caller-facing message of the error
// instead of the generic public message for their code.
var publicMessageCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:         true,
	pkgerrors.CodeForbidden:          true,
	pkgerrors.CodeUnauthorized:       true,
	pkgerrors.CodeNotFound:           true,
	pkgerrors.CodeNoTenant:           true,
	pkgerrors.CodeConflict:           true,
	pkgerrors.CodeIdempotency:        true,
	pkgerrors.CodeInvalidTransition:  true,
	pkgerrors.CodeQuantityTooSmall:   true,
	pkgerrors.CodeSelfDealing:        true,
	pkgerrors.CodeListingUnavailable: true,
	pkgerrors.CodeInsufficientStock:  true,
}

// WriteError renders err as an error envelope. Untyped errors become
// INTERNAL. Server faults log at error level, client faults at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if m := typed.Message(); m != "" && publicMessageCodes[typed.Code()] {
		apiErr.Message = m
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
	} else {
		logg.Warn(ctx, "request.rejected")
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent; an encode failure here means the client went away
	_ = json.NewEncoder(w).Encode(payload)
}
