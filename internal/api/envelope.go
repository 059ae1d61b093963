package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/http/response"
)

// APIEnvelope is the wire shape of every API response.
type APIEnvelope = response.Envelope //nolint:revive // API prefix is intentional for clarity

// enveloped is implemented by response bodies that carry a success message
// or choose their own data payload.
type enveloped interface {
	envelope() APIEnvelope
}

// EnvelopeTransformer wraps every response body in the {success, message, data, errors} envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case APIEnvelope, *APIEnvelope:
		return v, nil
	case *APIError:
		return APIEnvelope{Success: false, Message: body.Message, Errors: body.Details}, nil
	case *domainerrors.Error:
		if body.HTTPStatus() >= 500 {
			return APIEnvelope{Success: false, Message: internalErrorMessage}, nil
		}
		return APIEnvelope{Success: false, Message: body.Message, Errors: body.Details}, nil
	case error:
		return APIEnvelope{Success: false, Message: internalErrorMessage}, nil
	case enveloped:
		env := body.envelope()
		env.Success = isSuccess(status)
		return env, nil
	}

	return APIEnvelope{Success: isSuccess(status), Data: v}, nil
}

func isSuccess(status string) bool {
	code, err := strconv.Atoi(status)
	return err != nil || code < 400
}

// MessageBody is a response carrying only a message.
type MessageBody struct {
	message string
}

func (b MessageBody) envelope() APIEnvelope {
	return APIEnvelope{Message: b.message}
}
