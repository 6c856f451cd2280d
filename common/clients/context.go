package clients

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// EditorIDKey is the context key for the editor id (X-Editor-ID header)
	EditorIDKey contextKey = "editor-id"

	// RequestIDKey is the context key for the request id (X-Request-ID header)
	RequestIDKey contextKey = "request-id"
)

// WithEditorID adds the id of the editing user to the context.
// It is sent as X-Editor-ID on outgoing requests.
func WithEditorID(ctx context.Context, editorID string) context.Context {
	return context.WithValue(ctx, EditorIDKey, editorID)
}

// GetEditorID retrieves the editor id from context
func GetEditorID(ctx context.Context) (string, bool) {
	editorID, ok := ctx.Value(EditorIDKey).(string)
	return editorID, ok && editorID != ""
}

// WithRequestID adds a request id to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	return requestID, ok && requestID != ""
}
