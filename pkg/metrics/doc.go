// Package metrics exposes Prometheus collectors for the flag client.
//
// The Observe methods have the signatures of the batch, flagstore and transport
// hooks, so they can be passed directly:
//
//	m := metrics.New("featurekit")
//	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
//	    return err
//	}
//	b, err := batch.New(send, batch.WithOnDrop(m.ObserveDropped), batch.WithOnFlush(m.ObserveFlush))
//
// All methods are safe on a nil *Metrics.
package metrics
