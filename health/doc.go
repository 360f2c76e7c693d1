// Package health checks the reference dataset sources before they are parsed.
//
// DatasetCheck classifies one source: a missing file or a directory is
// unhealthy, an empty file is degraded because it parses to an empty table.
// Combine folds the per-dataset results into the overall status reported by
// the check command, naming the failing datasets in its details:
//
//	overall := health.Combine(
//	    health.DatasetCheck("controls", "data/nist_800_53_mapping.csv"),
//	    health.DatasetCheck("incidents", "data/incident_list_processed.csv"),
//	)
//	// overall.Details["failed_checks"] == []string{"controls"} when that file is missing
//
// FileCheck is the plain existence check used for the data directory.
package health
