package generate

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/wilweb04/Veo-Minacast/internal/veo"
)

// Classification is the user-facing reading of a workflow failure.
type Classification struct {
	// Message is the text to show the user.
	Message string
	// QuotaExceeded marks provider rate/quota limiting. The UI shows a
	// dedicated banner instead of the generic status line.
	QuotaExceeded bool
	// InvalidCredential marks a bad request or bad API key. The UI opens
	// the key entry dialog.
	InvalidCredential bool
}

// Classify maps a workflow error to its user-facing classification.
//
// Classification is two-tier: a structured provider error (either a typed
// APIError or a message that parses as {"error":{code,message}}) is read by
// code; anything else falls back to case-insensitive substring matching,
// because local failures such as a missing API key arrive as plain strings.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	var apiErr *veo.APIError
	if errors.As(err, &apiErr) {
		return classifyCode(apiErr.Code, apiErr.Message)
	}

	msg := err.Error()

	var envelope struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(msg), &envelope); jsonErr == nil && envelope.Error != nil {
		return classifyCode(envelope.Error.Code, envelope.Error.Message)
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "quota"):
		return Classification{Message: msg, QuotaExceeded: true}
	case strings.Contains(lower, "400") || strings.Contains(lower, "api key"):
		return Classification{Message: msg, InvalidCredential: true}
	}

	return Classification{Message: msg}
}

// classifyCode reads a structured provider error by its code.
func classifyCode(code int, message string) Classification {
	switch code {
	case 429:
		return Classification{Message: message, QuotaExceeded: true}
	case 400:
		return Classification{Message: message, InvalidCredential: true}
	default:
		return Classification{Message: message}
	}
}
