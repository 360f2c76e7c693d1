// Package dataset loads the reference tables used to profile threat actors.
//
// Sources are the ATT&CK STIX bundle, the ATT&CK mapping CSVs for NIST 800-53
// controls, CVEs and VERIS, the CVE detail workbook, the CWE catalogue, the
// technique complexity scores, the actor alias table and the incident log.
// Every source is canonicalized at load: non_mappable rows are dropped, labels
// are case-normalized and the CVE and VERIS joins are performed once.
//
// A Loader parses each source on first use and never reloads it. A missing or
// malformed source is logged and replaced by an empty table; Loader.Health
// reports which datasets are affected.
//
//	loader := dataset.NewLoader(cfg.Resolved(), dataset.WithLogger(logger))
//	snap := loader.Snapshot()
//	ttps := snap.Resolve("APT28")
package dataset
