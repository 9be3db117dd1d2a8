// Package tracker defines core types shared across subsystems.
package tracker

import "time"

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store. QUEUED and PROCESSING are the
// only re-enterable states; SUCCESSFUL and FAILED are terminal.
const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusSuccessful JobStatus = "SUCCESSFUL"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether a status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccessful || s == JobStatusFailed
}

// Job represents one queued unit of scrape work. RawParams holds the
// serialized payload exactly as it was written at enqueue time; it is only
// decoded when the worker picks the job up, so rows written by an older
// incompatible schema fail the job instead of the process.
type Job struct {
	ID        string     `json:"id"`
	RawParams string     `json:"params"`
	Status    JobStatus  `json:"status"`
	ErrorText string     `json:"errors,omitempty"`
	Requester string     `json:"username,omitempty"`
	Created   time.Time  `json:"time_created"`
	Started   *time.Time `json:"time_started,omitempty"`
	Finished  *time.Time `json:"time_finished,omitempty"`
}

// Series is a tracked collection of books sharing a landing page.
type Series struct {
	ASIN      string    `json:"asin"`
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"time_first_seen"`
}

// Book is a single release within a series. ReleaseDate is an ISO
// YYYY-MM-DD string; it stays nil for books whose landing page no longer
// surfaces a date, until a dedicated book job fills it in.
type Book struct {
	ASIN        string    `json:"asin"`
	SeriesASIN  string    `json:"series_asin"`
	Ordinal     int       `json:"ordinal"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ReleaseDate *string   `json:"release_date,omitempty"`
	FirstSeen   time.Time `json:"time_first_seen"`
}

// SeriesWithStatus is the series read model consumed by the CRUD layer:
// a series plus the requesting user's subscription flag and the total
// subscriber count.
type SeriesWithStatus struct {
	Series
	Subscribed  bool `json:"subscribed"`
	Subscribers int  `json:"subscribers"`
}

// BookWithReadState is the book read model consumed by the CRUD layer:
// a book from one of the user's subscribed series plus its read flag.
type BookWithReadState struct {
	Book
	Read bool `json:"read"`
}
