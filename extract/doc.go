// Package extract reduces reference tables to per-actor category summaries.
//
// Every extractor takes a table and a technique set and filters the table by
// technique membership before summarizing it. Extractors are pure: they never
// modify the table, and an empty technique set or an empty table yields an
// empty summary rather than an error. Means over no data are undefined
// types.Measure values, never zero.
package extract
