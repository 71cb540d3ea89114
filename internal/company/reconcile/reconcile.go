// Package reconcile records orphaned blob store objects for a manual
// sweep. It never deletes anything itself.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gartstein/companydir/internal/company/events"
	"go.uber.org/zap"
)

// Record is one line of the sweep list.
type Record struct {
	events.OrphanedAsset
	ReportedAt time.Time `json:"reported_at"`
}

// Sink appends orphan records to w as JSON lines.
type Sink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *zap.Logger
	now    func() time.Time
}

func NewSink(w io.Writer, logger *zap.Logger) *Sink {
	return &Sink{
		enc:    json.NewEncoder(w),
		logger: logger.Named("reconcile"),
		now:    time.Now,
	}
}

// Handle is an events.Consumer handler. Events other than orphaned assets
// are skipped.
func (s *Sink) Handle(_ context.Context, event events.Event) error {
	if event.Type != events.AssetOrphaned {
		return nil
	}
	if event.Orphan == nil {
		s.logger.Warn("Orphan event without payload")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(Record{OrphanedAsset: *event.Orphan, ReportedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("failed to record orphan %s: %w", event.Orphan.Ref, err)
	}
	s.logger.Info("Orphaned asset recorded",
		zap.String("company_id", event.Orphan.CompanyID.String()),
		zap.String("slot", event.Orphan.Slot),
		zap.String("ref", event.Orphan.Ref),
	)
	return nil
}
