// Package pipeline defines shared utilities consumed by the ingestion,
// export, and self-check stages.
//
// Key responsibilities:
//   - Context helpers that stamp sample IDs, stage names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that separate per-sample
//     faults (recorded, batch continues) from infrastructure faults (stage
//     aborts).
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package pipeline
