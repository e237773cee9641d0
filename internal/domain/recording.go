package domain

import "time"

// Recording is a stored meeting recording object
type Recording struct {
	MeetingID   string    `json:"meeting_id"`
	ObjectName  string    `json:"object_name"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
	URL         string    `json:"url,omitempty"`
}
