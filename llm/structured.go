package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

var (
	// ErrValidation marks model output that never decoded into the schema.
	ErrValidation = errors.New("schema validation failed")
	// ErrTransport marks a failed inference call.
	ErrTransport = errors.New("inference call failed")
)

// Outcome discriminates Result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalid
	OutcomeTransport
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeTransport:
		return "transport"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a structured call. Value is only meaningful
// when Outcome is OutcomeOK.
type Result[T any] struct {
	Value    T
	Outcome  Outcome
	Err      error
	Raw      string // last raw response
	Attempts int
}

// Unwrap returns the value or the error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Outcome != OutcomeOK {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// Validator is implemented by schema types with checks beyond decoding.
type Validator interface {
	Validate() error
}

type structuredOptions struct {
	maxAttempts int
	schemaHook  func(map[string]any)
}

// StructuredOption configures Structured.
type StructuredOption func(*structuredOptions)

// WithMaxAttempts bounds how many times the model is asked again after
// output that fails to decode or validate.
func WithMaxAttempts(n int) StructuredOption {
	return func(o *structuredOptions) { o.maxAttempts = n }
}

// WithSchemaHook lets the caller adjust the generated schema, e.g. to add
// array bounds known only at run time.
func WithSchemaHook(fn func(schema map[string]any)) StructuredOption {
	return func(o *structuredOptions) { o.schemaHook = fn }
}

// SchemaFor renders the JSON schema of T.
func SchemaFor[T any](hook func(map[string]any)) (string, error) {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	var v T
	raw, err := json.Marshal(r.Reflect(&v))
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return "", fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	if hook != nil {
		hook(schema)
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return string(out), nil
}

// Structured asks the model for a value of type T. Output that fails to
// decode or validate is sent back with the error for another attempt.
func Structured[T any](ctx context.Context, c Completer, req Request, opts ...StructuredOption) Result[T] {
	o := structuredOptions{maxAttempts: MaxRetries}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = 1
	}

	schema, err := SchemaFor[T](o.schemaHook)
	if err != nil {
		return Result[T]{Outcome: OutcomeInvalid, Err: fmt.Errorf("%w: %w", ErrValidation, err)}
	}
	base := req.Prompt + "\n\nRespond with a single JSON object conforming to this JSON schema:\n" +
		schema + "\n\nReturn ONLY the JSON, no other text.\n"

	prompt := base
	var lastErr error
	var raw string
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		raw, err = c.Complete(ctx, Request{System: req.System, Prompt: prompt})
		if err != nil {
			return Result[T]{
				Outcome:  OutcomeTransport,
				Err:      fmt.Errorf("%w: %w", ErrTransport, err),
				Attempts: attempt,
			}
		}

		v, decodeErr := Decode[T](raw)
		if decodeErr == nil {
			if val, ok := any(v).(Validator); ok {
				decodeErr = val.Validate()
			}
		}
		if decodeErr == nil {
			return Result[T]{Value: v, Outcome: OutcomeOK, Raw: raw, Attempts: attempt}
		}

		lastErr = decodeErr
		prompt = base + "\nYour previous answer could not be used: " + oneLine(decodeErr.Error()) +
			"\nAnswer again with valid JSON only.\n"
	}

	return Result[T]{
		Outcome:  OutcomeInvalid,
		Err:      fmt.Errorf("%w after %d attempts: %w", ErrValidation, o.maxAttempts, lastErr),
		Raw:      raw,
		Attempts: o.maxAttempts,
	}
}

// Text asks the model for free text.
func Text(ctx context.Context, c Completer, req Request) (string, error) {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return text, nil
}

func oneLine(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), 300)
}
