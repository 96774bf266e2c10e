package models

import "time"

type AttendanceRecord struct {
	AttendanceID string     `json:"id"`
	UserID       string     `json:"userId"`
	CheckInTime  time.Time  `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime"`
}

func (a AttendanceRecord) Open() bool { return a.CheckOutTime == nil }
