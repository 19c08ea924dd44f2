// Package domain holds the canonical fact model shared by every pipeline stage.
package domain

import "time"

// AssetKind classifies a measuring point.
type AssetKind string

const (
	AssetTopside   AssetKind = "TOPSIDE"
	AssetSubsea    AssetKind = "SUBSEA"
	AssetSeparator AssetKind = "SEPARATOR"
	AssetMPFM      AssetKind = "MPFM"
)

// Asset is a measuring point identified by its tag. Identity is the tag;
// Bank/Stream/Riser are ancillary grouping metadata that may be filled in
// incrementally as different report shapes are ingested but never silently
// overwritten once set (see Canonicalizer asset-resolution rules).
type Asset struct {
	Tag       string
	Kind      AssetKind
	Bank      string
	Stream    string
	Riser     string
	CreatedAt time.Time
}
