// Package stage implements the three orchestration strategies: parallel
// exploration of competing prompt variants, sequential iterative refinement
// under a quality threshold, and the fixed dual-perspective
// generate-critique-synthesize pipeline.
package stage
