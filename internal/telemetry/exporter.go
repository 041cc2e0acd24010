package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// fileExporter is a sdktrace.SpanExporter that writes one JSON file
// per trace under debugDir, instead of shipping spans to a network
// collector. Grounded on the teacher's
// pkg/observability.Provider.initTraceProvider wiring of a
// sdktrace.TracerProvider, with the OTLP gRPC exporter swapped for a
// local file sink — the evaluation runs as a one-shot CLI process, not
// a long-lived service with somewhere to send OTLP.
type fileExporter struct {
	debugDir string

	mu      sync.Mutex
	byTrace map[oteltrace.TraceID][]spanRecord
}

func newFileExporter(debugDir string) *fileExporter {
	return &fileExporter{
		debugDir: debugDir,
		byTrace:  make(map[oteltrace.TraceID][]spanRecord),
	}
}

// spanRecord is the flat, JSON-serializable projection of a
// sdktrace.ReadOnlySpan this package retains; the hierarchy is
// rebuilt from ParentID when a root span completes.
type spanRecord struct {
	ID         oteltrace.SpanID       `json:"id"`
	ParentID   oteltrace.SpanID       `json:"parent_id,omitempty"`
	Name       string                 `json:"name"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	Attributes map[string]any         `json:"attributes,omitempty"`
	StatusCode string                 `json:"status_code"`
	StatusMsg  string                 `json:"status_message,omitempty"`
	Children   []*spanRecord          `json:"children,omitempty"`
}

func (e *fileExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range spans {
		rec := spanRecord{
			ID:         s.SpanContext().SpanID(),
			ParentID:   s.Parent().SpanID(),
			Name:       s.Name(),
			StartTime:  s.StartTime(),
			EndTime:    s.EndTime(),
			Attributes: attrsToMap(s),
			StatusCode: s.Status().Code.String(),
			StatusMsg:  s.Status().Description,
		}
		traceID := s.SpanContext().TraceID()
		e.byTrace[traceID] = append(e.byTrace[traceID], rec)

		if !s.Parent().HasSpanID() {
			if err := e.flushTrace(traceID); err != nil {
				return err
			}
		}
	}
	return nil
}

func attrsToMap(s sdktrace.ReadOnlySpan) map[string]any {
	kvs := s.Attributes()
	if len(kvs) == 0 {
		return nil
	}
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

// flushTrace builds the span tree for traceID from whatever spans
// have been exported so far and writes it to
// debug/<unix-nanos>_<trace-id>.json (spec.md §7 debug trace files).
// Must be called with e.mu held.
func (e *fileExporter) flushTrace(traceID oteltrace.TraceID) error {
	records := e.byTrace[traceID]
	byID := make(map[oteltrace.SpanID]*spanRecord, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	var roots []*spanRecord
	for i := range records {
		rec := &records[i]
		if parent, ok := byID[rec.ParentID]; ok && rec.ParentID != rec.ID {
			parent.Children = append(parent.Children, rec)
			continue
		}
		roots = append(roots, rec)
	}

	if e.debugDir == "" {
		delete(e.byTrace, traceID)
		return nil
	}

	if err := os.MkdirAll(e.debugDir, 0o755); err != nil {
		return fmt.Errorf("telemetry: create debug dir: %w", err)
	}

	payload, err := json.MarshalIndent(roots, "", "  ")
	if err != nil {
		return fmt.Errorf("telemetry: marshal span tree: %w", err)
	}

	name := fmt.Sprintf("%d_%s.json", time.Now().UnixNano(), traceID.String())
	path := filepath.Join(e.debugDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("telemetry: write span tree: %w", err)
	}

	delete(e.byTrace, traceID)
	return nil
}

func (e *fileExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for traceID := range e.byTrace {
		if err := e.flushTrace(traceID); err != nil {
			return err
		}
	}
	return nil
}
