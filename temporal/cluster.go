// Package temporal groups images into time-proximity clusters from EXIF
// capture timestamps and exposes the neighbor lookup and proximity bonus the
// matcher uses as a corroborating signal. Clusters are a per-batch, in-memory
// artifact and are never persisted.
package temporal

import (
	"sort"
	"time"

	"bibmatch/sport"
)

// Timestamp sources. An image either has a trustworthy EXIF DateTimeOriginal
// or it is excluded from clustering entirely. File-modify-time fallbacks are
// deliberately not offered: copied or edited files make them misleading.
const (
	SourceEXIF     = "exif"
	SourceExcluded = "excluded"
)

const (
	defaultClusterWindow  = 3 * time.Second
	defaultBurstThreshold = 300 * time.Millisecond
)

// ImageTimestamp is the externally extracted capture time of one image.
type ImageTimestamp struct {
	FilePath  string    `json:"filePath"`
	FileName  string    `json:"fileName"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"timestampSource"`
}

// Valid reports whether the image carries a usable EXIF timestamp.
func (it ImageTimestamp) Valid() bool {
	return it.Source == SourceEXIF && !it.Timestamp.IsZero()
}

// Cluster is an ordered group of images whose timestamps fall within the
// sport's proximity window of each other.
type Cluster struct {
	Images    []ImageTimestamp
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	BurstMode bool
}

// BuildClusters sorts the valid images by timestamp and walks them
// sequentially, starting a new cluster whenever the gap to the previous image
// exceeds the sport's cluster window. A cluster is flagged burst-mode when
// any internal gap is at or below the burst threshold. Images without a valid
// timestamp never appear in any cluster.
func BuildClusters(images []ImageTimestamp, cfg sport.MatchingConfig) []Cluster {
	window, burst := windows(cfg)

	valid := make([]ImageTimestamp, 0, len(images))
	for _, img := range images {
		if img.Valid() {
			valid = append(valid, img)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	var clusters []Cluster
	current := Cluster{Images: []ImageTimestamp{valid[0]}, Start: valid[0].Timestamp, End: valid[0].Timestamp}
	for _, img := range valid[1:] {
		gap := img.Timestamp.Sub(current.End)
		if gap > window {
			current.Duration = current.End.Sub(current.Start)
			clusters = append(clusters, current)
			current = Cluster{Images: []ImageTimestamp{img}, Start: img.Timestamp, End: img.Timestamp}
			continue
		}
		if gap <= burst {
			current.BurstMode = true
		}
		current.Images = append(current.Images, img)
		current.End = img.Timestamp
	}
	current.Duration = current.End.Sub(current.Start)
	clusters = append(clusters, current)
	return clusters
}

// Neighbors returns every other valid-timestamp image within the cluster
// window of the target (symmetric window, independent of cluster membership).
// The matcher uses this to borrow corroborating identity from nearby shots.
func Neighbors(target ImageTimestamp, all []ImageTimestamp, cfg sport.MatchingConfig) []ImageTimestamp {
	if !target.Valid() {
		return nil
	}
	window, _ := windows(cfg)

	var out []ImageTimestamp
	for _, img := range all {
		if !img.Valid() || img.FilePath == target.FilePath {
			continue
		}
		gap := img.Timestamp.Sub(target.Timestamp)
		if gap < 0 {
			gap = -gap
		}
		if gap <= window {
			out = append(out, img)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// ProximityBonus returns the additive score bonus applied when a candidate is
// corroborated by a temporal neighbor's resolved identity.
func ProximityBonus(cfg sport.MatchingConfig) float64 {
	if cfg.ProximityBonus <= 0 {
		return 0
	}
	return cfg.ProximityBonus
}

func windows(cfg sport.MatchingConfig) (window, burst time.Duration) {
	window = cfg.ClusterWindow
	if window <= 0 {
		window = defaultClusterWindow
	}
	burst = cfg.BurstThreshold
	if burst <= 0 {
		burst = defaultBurstThreshold
	}
	return window, burst
}
