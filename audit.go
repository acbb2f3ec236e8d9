package accounts

import (
	"context"
	"reflect"
	"time"
)

// DefaultAuditRetention is the advisory horizon after which audit records
// become eligible for deletion.
const DefaultAuditRetention = 365 * 24 * time.Hour

// AuditStore persists immutable audit entries.
type AuditStore interface {
	Append(ctx context.Context, record *AuditRecord) error
}

// SnapshotFunc fetches the prior representation of a resource as a fixed
// field projection. A nil map with a nil error means the resource does not
// exist; the diff then degenerates to no old values.
type SnapshotFunc func(ctx context.Context, resourceID string) (map[string]any, error)

// Mutation identifies one mutating request for auditing purposes.
type Mutation struct {
	Actor      *Actor
	Action     AuditAction
	Resource   string
	ResourceID string
	Body       map[string]any
}

// Trail wraps mutating operations and records field-level diffs. Audit
// persistence is best-effort: append failures are logged and swallowed so
// they can never fail or roll back the primary operation.
type Trail struct {
	store     AuditStore
	snapshots map[string]SnapshotFunc
	logger    Logger
	now       Clock
	retention time.Duration
}

// TrailOption customizes trail construction.
type TrailOption func(*Trail)

// WithTrailClock injects a custom clock (useful for tests).
func WithTrailClock(clock Clock) TrailOption {
	return func(t *Trail) {
		t.now = normalizeClock(clock)
	}
}

// WithTrailLogger overrides the logger used for append failures.
func WithTrailLogger(logger Logger) TrailOption {
	return func(t *Trail) {
		t.logger = normalizeLogger(logger)
	}
}

// WithTrailRetention overrides the advisory retention horizon.
func WithTrailRetention(d time.Duration) TrailOption {
	return func(t *Trail) {
		if d > 0 {
			t.retention = d
		}
	}
}

// NewTrail creates an audit trail over the given store.
func NewTrail(store AuditStore, opts ...TrailOption) *Trail {
	t := &Trail{
		store:     store,
		snapshots: map[string]SnapshotFunc{},
		logger:    defLogger{},
		now:       time.Now,
		retention: DefaultAuditRetention,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// RegisterSnapshot binds a resource kind to its prior-state projection.
// Resources without a registered projection audit with no old values.
func (t *Trail) RegisterSnapshot(resource string, fn SnapshotFunc) *Trail {
	if fn != nil {
		t.snapshots[resource] = fn
	}
	return t
}

// Around runs the wrapped operation and records zero-or-one audit entry.
// The prior snapshot is fetched before the operation executes, by the
// resource id from the request path, regardless of what any preceding
// policy check decided. Requests without a resolved actor are not audited.
func (t *Trail) Around(ctx context.Context, m Mutation, op func(context.Context) error) error {
	if m.Actor == nil {
		return op(ctx)
	}

	var before map[string]any
	if m.Action == AuditActionUpdate || m.Action == AuditActionDelete {
		before = t.snapshot(ctx, m)
	}

	if err := op(ctx); err != nil {
		return err
	}

	t.record(ctx, m, before)
	return nil
}

// RecordChange appends an audit entry for a mutation whose prior values are
// already in hand, skipping the snapshot round trip. Same best-effort
// semantics as Around: requests without an actor are not audited, and
// append failures are logged and swallowed.
func (t *Trail) RecordChange(ctx context.Context, m Mutation, before map[string]any) {
	if m.Actor == nil {
		return
	}
	t.record(ctx, m, before)
}

func (t *Trail) snapshot(ctx context.Context, m Mutation) map[string]any {
	fn, ok := t.snapshots[m.Resource]
	if !ok {
		return nil
	}

	before, err := fn(ctx, m.ResourceID)
	if err != nil {
		t.logger.Error("audit snapshot for %s/%s failed: %v", m.Resource, m.ResourceID, err)
		return nil
	}
	return before
}

// record computes the diff and appends it. Never returns an error.
func (t *Trail) record(ctx context.Context, m Mutation, before map[string]any) {
	oldValues, newValues := DiffValues(m.Action, before, m.Body)
	if len(oldValues) == 0 && len(newValues) == 0 {
		return
	}

	now := t.now()
	record := &AuditRecord{
		ActorID:    m.Actor.ID.String(),
		ActorName:  m.Actor.Username,
		Action:     m.Action,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		ExpiresAt:  now.Add(t.retention),
		CreatedAt:  &now,
	}

	if err := t.store.Append(ctx, record); err != nil {
		t.logger.Error("audit append for %s/%s failed: %v", m.Resource, m.ResourceID, err)
	}
}

// ActionForMethod maps an HTTP-style verb to its audit action label.
func ActionForMethod(method string) AuditAction {
	switch method {
	case "PATCH", "PUT":
		return AuditActionUpdate
	case "DELETE":
		return AuditActionDelete
	case "POST":
		return AuditActionCreate
	case "GET":
		return AuditActionRead
	default:
		return "UNKNOWN"
	}
}

// DiffValues computes the minimal before/after delta for an audit entry.
// Updates and code-use entries iterate only the fields present in the body:
// fields absent from the request are never diffed, even when persisted state
// differs for unrelated reasons. Deletes record the prior snapshot (when one exists)
// against a deletion marker.
func DiffValues(action AuditAction, before map[string]any, body map[string]any) (map[string]any, map[string]any) {
	if action == AuditActionDelete {
		return before, map[string]any{"deleted": true}
	}

	if action == AuditActionCreate {
		if len(body) == 0 {
			return nil, nil
		}
		return nil, body
	}

	if action != AuditActionUpdate && action != AuditActionUse {
		return nil, nil
	}
	if before == nil || len(body) == 0 {
		return nil, nil
	}

	oldValues := map[string]any{}
	newValues := map[string]any{}

	for field, newValue := range body {
		oldValue, ok := before[field]
		if !ok {
			oldValue = nil
		}
		if !equalValues(oldValue, newValue) {
			oldValues[field] = oldValue
			newValues[field] = newValue
		}
	}

	if len(oldValues) == 0 {
		return nil, nil
	}
	return oldValues, newValues
}

// equalValues compares scalar snapshot values against decoded body values.
// JSON decoding turns every number into float64, so numeric kinds are
// normalized before comparison.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}

	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
