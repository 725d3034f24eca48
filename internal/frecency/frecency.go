// Package frecency implements the visit scoring model: a weighted,
// recency-decayed sum over a bounded sample of a place's most recent
// visits. Scores are recomputed from visit history on every update, so
// they are never directly settable and stay reproducible for a fixed
// clock reading.
package frecency

import (
	"math"
	"time"
)

// VisitType classifies how a page was reached.
type VisitType string

const (
	VisitLink              VisitType = "link"
	VisitTyped             VisitType = "typed"
	VisitBookmark          VisitType = "bookmark"
	VisitEmbed             VisitType = "embed"
	VisitRedirectPermanent VisitType = "redirect_permanent"
	VisitRedirectTemporary VisitType = "redirect_temporary"
	VisitDownload          VisitType = "download"
	VisitFramedLink        VisitType = "framed_link"
	VisitReload            VisitType = "reload"
)

// ValidVisitType reports whether s names a known visit type.
func ValidVisitType(s string) bool {
	switch VisitType(s) {
	case VisitLink, VisitTyped, VisitBookmark, VisitEmbed,
		VisitRedirectPermanent, VisitRedirectTemporary,
		VisitDownload, VisitFramedLink, VisitReload:
		return true
	}
	return false
}

// MaxSampledVisits bounds how many recent visits feed a recompute. This
// keeps per-observation work constant regardless of history length.
const MaxSampledVisits = 10

// RedirectSourceWeight is applied to visits recorded at the source of a
// redirect, so a hop chain doesn't count as a full visit at every link.
const RedirectSourceWeight = 0.25

// Visit is the slice of a stored visit that scoring needs.
type Visit struct {
	Type    VisitType
	At      time.Time
	Weight  float64 // per-visit multiplier, 1.0 for a normal visit
	IsError bool
}

// BaseWeight returns the contribution of a visit type before decay.
// Deliberate navigation (typed, bookmark) ranks far above incidental
// loads (embed, framed, reload).
func BaseWeight(t VisitType) float64 {
	switch t {
	case VisitTyped:
		return 200
	case VisitBookmark:
		return 140
	case VisitLink:
		return 100
	case VisitDownload:
		return 50
	case VisitRedirectPermanent:
		return 50
	case VisitRedirectTemporary:
		return 40
	case VisitReload:
		return 20
	case VisitEmbed, VisitFramedLink:
		return 10
	default:
		return 100
	}
}

// RecencyDecay maps visit age to a bucket multiplier. Monotonically
// non-increasing in age.
func RecencyDecay(age time.Duration) float64 {
	const day = 24 * time.Hour
	switch {
	case age < 4*day:
		return 1.0
	case age < 14*day:
		return 0.7
	case age < 31*day:
		return 0.5
	case age < 90*day:
		return 0.3
	default:
		return 0.1
	}
}

// Score computes the frecency of a place from its visits, as seen at
// now. Only the MaxSampledVisits most recent entries contribute; visits
// must be ordered most-recent-first (extra entries are ignored). Error
// visits subtract their weighted contribution instead of adding it, so
// a history of nothing but failures never scores above zero.
func Score(visits []Visit, now time.Time) int64 {
	if len(visits) > MaxSampledVisits {
		visits = visits[:MaxSampledVisits]
	}

	var total float64
	for _, v := range visits {
		age := now.Sub(v.At)
		if age < 0 {
			age = 0
		}
		w := v.Weight
		if w == 0 {
			w = 1.0
		}
		points := BaseWeight(v.Type) * RecencyDecay(age) * w
		if v.IsError {
			total -= points
		} else {
			total += points
		}
	}

	return int64(math.Round(total))
}
