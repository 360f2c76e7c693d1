// Package incident aggregates the incident log into per-actor frequency scores
// and the country, industry and timeline breakdowns shown alongside a profile.
//
// Frequency scores are min–max scaled over the whole actor population into
// [0.01, 1.0]. A Frequencies value is built in full from a table and never
// updated in place; rebuild it when the incident table changes.
package incident
