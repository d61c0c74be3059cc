package probation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EventPromoted is dispatched to the employee once their promotion
// committed.
const EventPromoted = "probation_completed"

// Notifier delivers promotion notices. Dispatch happens after the
// promotion committed and its failures never affect the outcome.
type Notifier interface {
	Dispatch(ctx context.Context, userID, kind, title, body string)
}

// Service runs the probation pipeline: find expired active records and
// promote each employee, one transaction per record so a failure on one
// never blocks the rest.
type Service struct {
	Store  Store
	Notify Notifier
}

func NewService(store Store, notify Notifier) *Service {
	return &Service{Store: store, Notify: notify}
}

// Result is the per-record outcome of a sweep.
type Result struct {
	RecordID   string `json:"recordId"`
	EmployeeID string `json:"employeeId"`
	Promoted   bool   `json:"promoted"`
	Error      string `json:"error,omitempty"`
}

// Summary aggregates one sweep run.
type Summary struct {
	Processed int      `json:"processed"`
	Promoted  int      `json:"promoted"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results,omitempty"`
}

// ProcessExpired promotes every employee whose probation expired on or
// before asOf. Each record commits independently; a second run over the
// same records is a no-op because completion is guarded by the record's
// active status.
func (s *Service) ProcessExpired(ctx context.Context, asOf time.Time) (*Summary, error) {
	expired, err := s.Store.ExpiredActive(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list expired probation records: %w", err)
	}

	summary := &Summary{Processed: len(expired)}
	for _, record := range expired {
		result := Result{RecordID: record.ID, EmployeeID: record.EmployeeID}

		promoted, err := s.Store.CompleteAndPromote(ctx, record.ID, record.EmployeeID, asOf)
		switch {
		case err != nil:
			result.Error = err.Error()
			summary.Failed++
			slog.Error("probation promotion failed",
				"record_id", record.ID,
				"employee_id", record.EmployeeID,
				"error", err)
		case promoted:
			result.Promoted = true
			summary.Promoted++
			s.notifyPromoted(ctx, record.EmployeeID)
		default:
			// Already completed by an earlier run.
		}

		summary.Results = append(summary.Results, result)
	}

	if summary.Promoted > 0 || summary.Failed > 0 {
		slog.Info("probation sweep finished",
			"processed", summary.Processed,
			"promoted", summary.Promoted,
			"failed", summary.Failed)
	}
	return summary, nil
}

func (s *Service) notifyPromoted(ctx context.Context, employeeID string) {
	if s.Notify == nil {
		return
	}
	userID, err := s.Store.EmployeeUserID(ctx, employeeID)
	if err != nil || userID == "" {
		return
	}
	s.Notify.Dispatch(ctx, userID, EventPromoted, "Probation completed",
		"Congratulations, your probation period is complete and your status is now regular.")
}
