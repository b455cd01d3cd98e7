// Package metrics records conversion and publish metrics.
//
// Components receive a Recorder and default to NoopRecorder, so callers never
// check for nil. PrometheusRecorder collects into its own registry and is
// flushed once per invocation as a node-exporter textfile: the tool is a
// short-lived process and has no endpoint to scrape.
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	pipeline := convert.New(cfg, convert.WithRecorder(rec))
//	...
//	_ = rec.WriteTextfile("/var/lib/node_exporter/jekyllpress.prom")
package metrics
