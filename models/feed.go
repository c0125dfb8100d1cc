package models

import (
	"time"
)

// FeedEntry is one timestamped block extracted from a raw channel feed
type FeedEntry struct {
	Channel  string    `json:"channel"`
	Datetime time.Time `json:"datetime"`
	Body     string    `json:"body"`
}

// ReportItem is one bullet parsed out of a categorized report
type ReportItem struct {
	Categoria   Category `json:"categoria"`
	Descripcion string   `json:"descripcion"`
	Place       string   `json:"place,omitempty"`
	Fuente      string   `json:"fuente,omitempty"`
}

// RawFeed is an unparsed text block handed over by a collector source
type RawFeed struct {
	Source    string    `json:"source"`
	Pais      string    `json:"pais"`
	Channel   string    `json:"channel"`
	FetchedAt time.Time `json:"fetched_at"`
	Text      string    `json:"text"`
}
