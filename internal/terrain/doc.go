// Package terrain implements the mound detection engine: learning a
// feature-interaction kernel from known windmill foundation sites, scanning
// an elevation feature grid with it to produce a per-pixel coherence map,
// extracting candidate clusters from that map, scoring candidates against a
// per-feature statistical motif, and validating the learned kernel against
// held-out sites.
//
// The package is purely computational: it performs no I/O, holds no
// cross-scan shared state, and owns no wire or file format. Inputs
// (FeatureGrid, site lists) are supplied once per scan and treated as
// immutable. A Session owns the learned Kernel and Motif for one scan and
// must not be shared between concurrent scans.
//
// Distance and area math deliberately uses planar lat/lon approximations;
// see internal/units for the conversion factors and their limits.
package terrain
