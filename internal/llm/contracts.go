package llm

import "context"

// Request is what the core sends to the Structured Extraction Oracle.
type Request struct {
	System     string         // instructions
	Prompt     string         // document text and context
	Schema     map[string]any // optional JSON schema the reply must satisfy
	SchemaName string         // stable name used to cache the compiled schema
}

// Oracle is the opaque LLM boundary. Implementations return the model's
// reply verbatim; locating and validating JSON in it is the caller's job.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req Request) (string, error)

func (f OracleFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
