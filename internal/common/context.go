package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyBatchID    contextKey = "batch_id"
	ContextKeyProposalID contextKey = "proposal_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithBatchID tags ctx with the batch an item belongs to.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch ID from context
func BatchIDFromContext(ctx context.Context) string {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return batchID
	}
	return ""
}

// WithProposalID tags ctx with the proposal a requirement extraction runs for.
func WithProposalID(ctx context.Context, proposalID string) context.Context {
	return context.WithValue(ctx, ContextKeyProposalID, proposalID)
}

// ProposalIDFromContext extracts the proposal ID from context
func ProposalIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyProposalID).(string); ok {
		return id
	}
	return ""
}
