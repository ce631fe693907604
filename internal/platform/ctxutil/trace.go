package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies the request or scheduler pass a context belongs to.
// Source is where the pass started: http, worker, temporal or cli.
type TraceData struct {
	TraceID   string
	RequestID string
	ChainID   string
	SegmentID string
	Source    string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// WithChain returns a context whose trace data names chainID. Existing trace
// and request ids are kept; the parent's TraceData is not modified.
func WithChain(ctx context.Context, chainID, source string) context.Context {
	next := TraceData{ChainID: chainID, Source: source}
	if cur := GetTraceData(ctx); cur != nil {
		next.TraceID, next.RequestID = cur.TraceID, cur.RequestID
		if source == "" {
			next.Source = cur.Source
		}
	}
	return WithTraceData(ctx, &next)
}

// Fields flattens the non-empty ids into logger key/value pairs.
func (td *TraceData) Fields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	add := func(k, v string) {
		if v != "" {
			out = append(out, k, v)
		}
	}
	add("trace_id", td.TraceID)
	add("request_id", td.RequestID)
	add("chain_id", td.ChainID)
	add("segment_id", td.SegmentID)
	add("source", td.Source)
	return out
}
