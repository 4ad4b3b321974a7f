// Package models defines domain entities and persistence interfaces for the promptlist playlist generator.
//
// The package contains two categories of types:
//
// 1. Pipeline values: short-lived structs passed between the generation stages
//   - [ProcessingMode] and [ProcessingConfig] : named collection depth presets
//   - [SourceSelection] : which parts of the user's library feed a generation
//   - [PromptAnalysis] : musical characteristics inferred from the prompt
//   - [CandidateTrack] : a track in the pool, optionally carrying [AudioFeatures]
//   - [GenerationProgress] : the pollable state of one generation
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [GeneratedPlaylist] : record of a completed generation
//
// All persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
