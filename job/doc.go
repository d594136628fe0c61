// Package job defines the value types that describe one job run: its
// Parameters, its Metrics, its terminal Status and the Report returned
// when the run ends.
//
// Parameters can be loaded from YAML:
//
//	name: import-users
//	batch_size: 500
//	error_threshold: 10
//	monitoring: true
//
// Reports from jobs that ran in parallel can be combined with Merge.
package job
