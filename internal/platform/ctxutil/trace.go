package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries request correlation plus the job the request touches,
// when the route names one.
type TraceData struct {
	TraceID      string
	RequestID    string
	Stage        string
	EnrichmentID string
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

// LogFields flattens the non-empty trace values into key/value pairs for
// the sugared logger.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	for _, kv := range [][2]string{
		{"trace_id", td.TraceID},
		{"request_id", td.RequestID},
		{"stage", td.Stage},
		{"enrichment_id", td.EnrichmentID},
	} {
		if kv[1] != "" {
			out = append(out, kv[0], kv[1])
		}
	}
	return out
}
