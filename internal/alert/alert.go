package alert

import (
	"context"
	"sort"
	"sync"

	"bridge-reconcile-go/internal/models"

	"go.uber.org/zap"
)

// Severity levels
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is an operator-visible failure
type Alert struct {
	Title    string
	Severity string
	Fields   map[string]string
	Err      error
}

// Alerter delivers alerts somewhere a human will see them
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// LogAlerter writes alerts as error-level structured log lines
type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, a Alert) {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := []zap.Field{
		zap.String("alert", a.Title),
		zap.String("severity", a.Severity),
	}
	for _, k := range keys {
		fields = append(fields, zap.String(k, a.Fields[k]))
	}
	if rc := models.GetRunContext(ctx); rc != nil {
		fields = append(fields, zap.String("run_id", rc.RunId))
	}
	if a.Err != nil {
		fields = append(fields, zap.Error(a.Err))
	}
	zap.L().Error("ALERT: "+a.Title, fields...)
}

// Recorder keeps alerts in memory; used by tests and the CLI dry runs.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Alert(_ context.Context, a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}
