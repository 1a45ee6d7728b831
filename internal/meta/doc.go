// Package meta defines the annotations a superset class carries to describe
// which versions each declaration existed in and how it changed.
//
// Every marker is runtime-visible and lives in the ssg/api package:
//
//	@ExistsIn(versions = {"1", "2"})
//	@AlternativeVisibility(versions = {"1", "2"}, visibility = {PUBLIC, PACKAGE_PRIVATE})
//	@AlternativeModality(versions = {"1", "3"}, modality = {FINAL, OPEN})
//	@NotNull / @Nullable
//
// The two alternative markers hold parallel arrays in history order.
// Inspect reads them back from a decoded class.
package meta
