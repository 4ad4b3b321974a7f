// Package tasks builds playlists from a prompt.
//
// # Pipeline
//
// [Generator.Generate] runs one generation from start to finish:
//
//  1. Analyze the prompt into a [models.PromptAnalysis] (analysis package)
//  2. Map the analysis genres onto the catalog's seed genres (genres package)
//  3. Create the destination playlist
//  4. Collect a candidate pool with the [Collector]
//  5. Attach audio features with the [Enricher]
//  6. Rank and truncate the pool with the [Scorer]
//  7. Add the selection to the playlist and save a record
//
// Only steps before the playlist exists can fail the generation. Later failures shrink the result instead.
//
// # Progress Reporting
//
// The [Collector] publishes [CollectEvent] values on a channel without blocking. The [Generator] consumes them
// in a goroutine and writes overall progress to a progress.Store that pollers read.
//
// # Scoring
//
// Tracks with audio features are scored on six dimensions against the analysis ranges, weighted by the dimension
// an [EmphasisClassifier] picks from the filter description. When no track has features the pool is ranked by
// popularity and the selection method says so.
package tasks
