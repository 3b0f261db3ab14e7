package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/conversation"
	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/metrics"
)

// EventSink receives a notification after every successfully persisted
// analysis. Implementations publish to AMQP; a nil sink disables events.
type EventSink interface {
	PublishAnalysisComplete(ctx context.Context, conversationID string, doc *Document) error
}

const (
	strategyStandard = "standard"
	strategyReduced  = "reduced"
)

// Orchestrator drives a full analysis run: memoized store lookup, snapshot
// fetch, analyzer fan-out with per-analyzer failure isolation, namespace
// merge and persistence. Analyzers share no mutable state, so they run
// sequentially without any locking.
type Orchestrator struct {
	logger *logrus.Logger
	cfg    Config
	source ConversationSource
	store  ResultStore
	events EventSink

	standard []Analyzer
	reduced  []Analyzer
}

// NewOrchestrator wires the full analyzer set. The reduced set runs for
// inputs above the large-input threshold: primitives only, with the
// multi-pass time and content analyzers folding in fixed-size chunks.
func NewOrchestrator(logger *logrus.Logger, cfg Config, source ConversationSource, store ResultStore, events EventSink) *Orchestrator {
	primitives := func(chunkSize int) []Analyzer {
		return []Analyzer{
			NewMessageAnalyzer(),
			NewTimeAnalyzer(chunkSize),
			NewUserAnalyzer(cfg.ResponseCeiling),
			NewContentAnalyzer(cfg.TopN, chunkSize),
		}
	}
	composites := []Analyzer{
		NewDynamicsAnalyzer(cfg.SessionGap, cfg.RapidFireGap),
		NewBehaviorAnalyzer(),
		NewRelationshipAnalyzer(cfg.ReciprocityWindow, cfg.RelationshipSessionGap, cfg.ResponseProfileCeiling),
		NewIntelligenceAnalyzer(),
		NewTemporalAnalyzer(cfg.ResponseCeiling),
	}

	return &Orchestrator{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		store:    store,
		events:   events,
		standard: append(primitives(0), composites...),
		reduced:  primitives(cfg.ChunkSize),
	}
}

// Analyze produces the result document for a conversation. A cached document
// short-circuits recomputation; a missing conversation is fatal; analyzer
// failures degrade to a partial document that always carries a summary.
func (o *Orchestrator) Analyze(ctx context.Context, conversationID string) (*Document, error) {
	if cached, err := o.store.Get(ctx, conversationID); err != nil {
		o.logger.WithError(err).WithField("conversation_id", conversationID).Warn("Result store read failed, recomputing")
		metrics.RecordStoreError("get")
	} else if cached != nil && cached.Summary != nil {
		metrics.RecordStoreHit()
		o.logger.WithField("conversation_id", conversationID).Debug("Serving cached analysis result")
		return cached, nil
	} else {
		metrics.RecordStoreMiss()
	}

	snap, err := o.source.Get(ctx, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching conversation snapshot").WithField("conversation_id", conversationID)
	}
	if snap == nil {
		return nil, errors.NewConversationNotFound(conversationID)
	}

	doc := o.AnalyzeSnapshot(ctx, snap)

	if doc.Error == nil {
		if err := o.store.Save(ctx, conversationID, doc); err != nil {
			// Persistence failures never invalidate the in-memory result.
			o.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to persist analysis result")
			metrics.RecordStoreError("save")
		} else if o.events != nil {
			if err := o.events.PublishAnalysisComplete(ctx, conversationID, doc); err != nil {
				o.logger.WithError(err).Warn("Failed to publish analysis-completed event")
				metrics.RecordEventPublish("error")
			} else {
				metrics.RecordEventPublish("ok")
			}
		}
	}

	return doc, nil
}

// AnalyzeSnapshot runs the analyzer fan-out over an already-fetched snapshot.
func (o *Orchestrator) AnalyzeSnapshot(ctx context.Context, snap *conversation.Snapshot) *Document {
	strategy := strategyStandard
	analyzers := o.standard
	if len(snap.Messages) > o.cfg.LargeInputThreshold {
		strategy = strategyReduced
		analyzers = o.reduced
	}

	if metrics.IsMetricsEnabled() && metrics.AnalysesStarted != nil {
		metrics.AnalysesStarted.WithLabelValues(strategy).Inc()
		metrics.ActiveAnalyses.Inc()
		defer metrics.ActiveAnalyses.Dec()
	}
	start := time.Now()

	doc := &Document{}
	var failed []string
	var firstFailure error

	for _, analyzer := range analyzers {
		partial, err := o.runAnalyzer(ctx, analyzer, snap)
		if err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"analyzer":        analyzer.Name(),
				"conversation_id": snap.ID,
			}).Error("Analyzer failed")
			metrics.RecordAnalyzerFailure(analyzer.Name())
			failed = append(failed, analyzer.Name())
			if firstFailure == nil {
				firstFailure = err
			}
			continue
		}
		doc.Merge(partial)
	}

	// The summary namespace is mandatory; if the message analyzer itself
	// failed, rebuild a best-effort summary straight from the snapshot.
	if doc.Summary == nil {
		doc.Summary = fallbackSummary(snap)
	}
	if len(failed) > 0 {
		doc.Error = &AnalysisError{
			Message:   errors.NewAnalysisFailed(firstFailure.Error()).Error(),
			Analyzers: failed,
		}
		if metrics.IsMetricsEnabled() && metrics.AnalysesFailed != nil {
			metrics.AnalysesFailed.Inc()
		}
	}

	status := "ok"
	if doc.Error != nil {
		status = "partial"
	}
	if metrics.IsMetricsEnabled() && metrics.AnalysesCompleted != nil {
		metrics.AnalysesCompleted.WithLabelValues(strategy, status).Inc()
		metrics.AnalysisDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}

	o.logger.WithFields(logrus.Fields{
		"conversation_id": snap.ID,
		"strategy":        strategy,
		"messages":        len(snap.Messages),
		"status":          status,
		"duration":        time.Since(start).Round(time.Millisecond).String(),
	}).Info("Analysis run completed")

	if recorder, ok := o.store.(RunRecorder); ok {
		rec := RunRecord{
			ConversationID: snap.ID,
			Strategy:       strategy,
			Status:         status,
			Duration:       time.Since(start),
		}
		if doc.Error != nil {
			rec.ErrorMessage = doc.Error.Message
		}
		if err := recorder.RecordRun(ctx, rec); err != nil {
			o.logger.WithError(err).Warn("Failed to record analysis run")
			metrics.RecordStoreError("record_run")
		}
	}

	return doc
}

// runAnalyzer isolates one analyzer pass: panics are normalized into errors
// so a misbehaving composite can never take down the whole run.
func (o *Orchestrator) runAnalyzer(ctx context.Context, analyzer Analyzer, snap *conversation.Snapshot) (doc *Document, err error) {
	done := metrics.ObserveAnalyzer(analyzer.Name())
	defer done()
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = errors.NewAnalysisFailed(fmt.Sprintf("analyzer panic: %v", r), map[string]interface{}{
				"analyzer": analyzer.Name(),
			})
		}
	}()
	return analyzer.Analyze(ctx, snap)
}

// fallbackSummary computes the minimal mandatory summary directly from the
// raw snapshot. A nil snapshot degrades to an all-zero summary rather than
// failing a second time.
func fallbackSummary(snap *conversation.Snapshot) *Summary {
	summary := &Summary{
		MessagesPerUser: map[string]int{},
		UserPercentages: map[string]float64{},
	}
	if snap == nil {
		return summary
	}
	// ParticipantCount means distinct real senders, same as the message
	// analyzer: a roster entry that never sent anything does not count.
	senders := make(map[string]struct{})
	for _, m := range snap.RealMessages() {
		summary.TotalMessages++
		senders[m.SenderID] = struct{}{}
		if m.Kind.IsMedia() {
			summary.MediaCount++
		}
	}
	summary.ParticipantCount = len(senders)
	if !snap.FirstMessageAt.IsZero() {
		summary.DateRange = snap.FirstMessageAt.Format("2006-01-02") + " - " + snap.LastMessageAt.Format("2006-01-02")
		summary.DurationDays = snap.SpanDays()
		if summary.DurationDays > 0 {
			summary.DailyAverage = round2(float64(summary.TotalMessages) / float64(summary.DurationDays))
		}
	}
	return summary
}
