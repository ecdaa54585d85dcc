package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

// StoreMetrics holds the Prometheus collectors for entry store operations
type StoreMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxtrust_store_operations_total",
				Help: "Total number of entry store operations",
			},
			[]string{"store", "operation", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oxtrust_store_operation_duration_seconds",
				Help:    "Entry store operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.OperationsTotal, m.OperationDuration)
	}
	return m
}

// InstrumentedEntryStore decorates an EntryStore with operation metrics.
type InstrumentedEntryStore struct {
	next    EntryStore
	metrics *StoreMetrics
}

// Ensure InstrumentedEntryStore implements EntryStore
var _ EntryStore = (*InstrumentedEntryStore)(nil)

func NewInstrumentedEntryStore(next EntryStore, metrics *StoreMetrics) *InstrumentedEntryStore {
	return &InstrumentedEntryStore{next: next, metrics: metrics}
}

func (s *InstrumentedEntryStore) observe(op string, start time.Time, err error) {
	store := s.next.PersistenceType()
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrEntryNotFound):
		result = "not_found"
	case errors.Is(err, ErrEntryExists):
		result = "exists"
	default:
		result = "error"
	}
	s.metrics.OperationsTotal.WithLabelValues(store, op, result).Inc()
	s.metrics.OperationDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedEntryStore) Find(ctx context.Context, dn string) (Document, error) {
	start := time.Now()
	doc, err := s.next.Find(ctx, dn)
	s.observe("find", start, err)
	return doc, err
}

func (s *InstrumentedEntryStore) Contains(ctx context.Context, dn string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Contains(ctx, dn)
	s.observe("contains", start, err)
	return ok, err
}

func (s *InstrumentedEntryStore) Persist(ctx context.Context, doc Document) error {
	start := time.Now()
	err := s.next.Persist(ctx, doc)
	s.observe("persist", start, err)
	return err
}

func (s *InstrumentedEntryStore) Merge(ctx context.Context, doc Document) error {
	start := time.Now()
	err := s.next.Merge(ctx, doc)
	s.observe("merge", start, err)
	return err
}

func (s *InstrumentedEntryStore) Remove(ctx context.Context, dn string) error {
	start := time.Now()
	err := s.next.Remove(ctx, dn)
	s.observe("remove", start, err)
	return err
}

func (s *InstrumentedEntryStore) FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.FindEntries(ctx, baseDN, objectClass, f, sizeLimit)
	s.observe("find_entries", start, err)
	return docs, err
}

func (s *InstrumentedEntryStore) PersistenceType() string {
	return s.next.PersistenceType()
}

func (s *InstrumentedEntryStore) Close() error {
	return s.next.Close()
}
