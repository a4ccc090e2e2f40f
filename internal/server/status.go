package server

// statusPayload is a settled outcome shown to the user. A zero
// DismissAfterMS keeps the message on screen.
type statusPayload struct {
	IsError        bool   `json:"is_error"`
	Message        string `json:"message"`
	DismissAfterMS int64  `json:"dismiss_after_ms"`
}

func (h *httpHandler) transientStatus(isError bool, message string) statusPayload {
	return statusPayload{
		IsError:        isError,
		Message:        message,
		DismissAfterMS: h.dismissAfter.Milliseconds(),
	}
}

func persistentError(message string) statusPayload {
	return statusPayload{IsError: true, Message: message}
}
