package dto

// EventDateLayout is the wire format of event dates.
const EventDateLayout = "2006-01-02"

// CreateEventRequest is the payload for creating an event, as JSON or multipart form fields.
// Tags may arrive as a list or as one comma-separated string.
type CreateEventRequest struct {
	Title        string   `json:"title" form:"title" validate:"required,max=200"`
	Description  string   `json:"description" form:"description" validate:"required"`
	Date         string   `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	Time         string   `json:"time" form:"time" validate:"required"`
	Location     string   `json:"location" form:"location" validate:"required"`
	Category     string   `json:"category" form:"category" validate:"required,category"`
	MaxAttendees *int     `json:"maxAttendees" form:"maxAttendees" validate:"omitempty,min=1"`
	Tags         []string `json:"tags" form:"tags"`
}

// UpdateEventRequest patches an event. Absent fields are left untouched.
type UpdateEventRequest struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" validate:"omitempty,min=1"`
	Date         *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time         *string  `json:"time" validate:"omitempty,min=1"`
	Location     *string  `json:"location" validate:"omitempty,min=1"`
	Category     *string  `json:"category" validate:"omitempty,category"`
	MaxAttendees *int     `json:"maxAttendees" validate:"omitempty,min=1"`
	Tags         []string `json:"tags"`
	Status       *string  `json:"status" validate:"omitempty,event_status"`
}

// ImageUpload carries an uploaded image file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
