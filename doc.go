// Package threatscore profiles cyber threat-actor groups against several
// threat-intelligence datasets and scores them with a composite risk score.
//
// # Core Concepts
//
//   - Snapshot: the immutable reference tables (ATT&CK groups and techniques,
//     NIST 800-53 controls, CVEs, CWEs, VERIS impact, complexity, incidents)
//   - Technique set: the ordered, de-duplicated techniques an actor uses; the
//     join key for every extractor
//   - Profile: the category summaries of one technique set plus its score
//   - Score: a weighted sum of complexity, frequency, impact, mitigation,
//     sector and actor type, with a breakdown that always sums to the total
//
// # Getting Started
//
//	cfg, err := config.Load("threatscore.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	loader := dataset.NewLoader(cfg.Resolved())
//	profiler, err := threatscore.New(loader.Snapshot(), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := profiler.Profile(ctx, "APT28", threatscore.ProfileOptions{
//		ActorType: "Nation-State",
//	})
//	if errors.Is(err, threatscore.ErrActorNotFound) {
//		// unknown actor: profile has no techniques
//	}
//	if errors.Is(profile.Err(), threatscore.ErrInsufficientData) {
//		// a component has no data: the total is undefined, not zero
//	}
//
// # Error Handling
//
// Missing datasets never fail a profile: the loader substitutes empty tables
// and the affected components become undefined. An undefined component makes
// the total undefined and is reported through ErrInsufficientData, so callers
// can tell "no data" apart from a score of 0. All errors are *Error values
// carrying an operation and a kind, and support errors.Is and errors.As.
//
// # Observability
//
// WithTracer records a "threatscore.profile" span per profile. WithMeterProvider
// enables the threatscore.total histogram and the threatscore.profiles and
// threatscore.insufficient_data counters.
package threatscore
