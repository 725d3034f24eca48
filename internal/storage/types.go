package storage

import (
	"time"

	"github.com/runnerr0/recall/internal/frecency"
)

// Place is the durable aggregate for a single URL: its canonical title
// and the derived ranking state maintained across observations.
type Place struct {
	GUID       string
	URL        string
	Title      string
	VisitCount int64
	Frecency   int64
	LastVisit  time.Time
	IconURL    string
}

// Observation describes one visit event to apply to the store. Optional
// fields use pointers so "absent" and "zero" stay distinguishable.
type Observation struct {
	URL                       string
	VisitType                 *frecency.VisitType
	Title                     *string
	IsError                   *bool
	IsRedirectSource          *bool
	IsPermanentRedirectSource *bool
	At                        *time.Time
	Referrer                  *string
	IsRemote                  *bool
}

// Visit is a stored visit row.
type Visit struct {
	PlaceGUID string
	Type      frecency.VisitType
	At        time.Time
	Weight    float64
	IsError   bool
	Referrer  string
	IsRemote  bool
}

// Stats holds aggregate statistics about the database.
type Stats struct {
	TotalPlaces int64
	TotalVisits int64
	OldestVisit time.Time
	NewestVisit time.Time
	TopHosts    []HostCount
}

// HostCount pairs a hostname with its place count.
type HostCount struct {
	Host  string
	Count int64
}
