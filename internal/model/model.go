package model

import "time"

// TimestampLayout is the UTC layout used for every stored timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t the way documents store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// StudentProfile is an enrolled student.
type StudentProfile struct {
	Name         string  `json:"name"`
	StudentID    string  `json:"student_id"`
	Class        string  `json:"class"`
	RollNo       string  `json:"roll_no"`
	EnrolledAt   string  `json:"enrolled_at"`
	FaceImage    *string `json:"face_image"`
	FaceImageURL string  `json:"face_image_url,omitempty"`
}

// TeacherProfile is an enrolled teacher.
type TeacherProfile struct {
	Name            string  `json:"name"`
	TeacherID       string  `json:"teacher_id"`
	Department      string  `json:"department"`
	AssignedClasses string  `json:"assigned_classes"`
	EnrolledAt      string  `json:"enrolled_at"`
	FaceImage       *string `json:"face_image"`
	FaceImageURL    string  `json:"face_image_url,omitempty"`
}

// Attendance statuses. Capture only ever produces StatusPresent.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// AttendanceRecord is one captured attendance entry.
type AttendanceRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	TS       string `json:"ts"`
	Image    string `json:"image"`
	ImageURL string `json:"image_url,omitempty"`
}
