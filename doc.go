/*
go-segtrack merges per-frame segmentation masks into a consistent set of
tracked objects over the course of a video. Each frame's segment proposals
are matched against the tracked population by mask overlap, matched segments
keep their object's identity, unmatched segments found new objects and
objects that vanish are carried over until pruned.

The root package provides the Session driver running one video stream.
Package tracker holds the matching and merging core, package mask the
binary and label mask algebra, package proposal the adapters turning
detector outputs into mergeable candidates, package render the mask
visualisation helpers and package store optional sqlite persistence of
tracking runs.

See example code and usage in the examples subdirectory.
*/
package segtrack
