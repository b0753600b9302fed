package model

import (
	"strings"
	"time"
)

const (
	DiagnosisHealthy  = "Healthy"
	DiagnosisInfected = "Infected"
	DiagnosisInvalid  = "Invalid"
)

const (
	StatusToExamine = "to examine"
	StatusConfirmed = "confirmed"
	StatusTreated   = "treated"
	StatusRecovered = "recovered"
	StatusDeceased  = "deceased"
)

type Result struct {
	ID              int64     `db:"result_id" json:"result_id"`
	DoctorID        int64     `db:"doctor_id" json:"doctor_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UltrasoundImage string    `db:"ultrasound_image" json:"ultrasound_image"`
	Percentage      string    `db:"percentage" json:"percentage"`
	Diagnosis       string    `db:"diagnosis" json:"diagnosis"`
	Status          string    `db:"status" json:"status"`
}

// ResultDetails is a result joined with the patient and the doctor who recorded it.
type ResultDetails struct {
	Result
	PatientName          string  `db:"name" json:"name"`
	PatientFirstName     string  `db:"user_first_name" json:"user_first_name"`
	PatientLastName      string  `db:"user_last_name" json:"user_last_name"`
	PatientEmail         string  `db:"user_email" json:"user_email"`
	DoctorFirstName      string  `db:"doctor_first_name" json:"doctor_first_name"`
	DoctorLastName       string  `db:"doctor_last_name" json:"doctor_last_name"`
	DoctorProfilePicture *string `db:"doctor_profile_picture" json:"doctor_profile_picture,omitempty"`
}

// DoctorName is the display name of the doctor who recorded the result.
func (d *ResultDetails) DoctorName() string {
	return strings.TrimSpace(d.DoctorFirstName + " " + d.DoctorLastName)
}

type Stats struct {
	TotalPatients    int `db:"total_patients" json:"total_patients"`
	InfectedPatients int `db:"infected_patients" json:"infected_patients"`
	HealthyPatients  int `db:"healthy_patients" json:"healthy_patients"`
}

func ValidDiagnosis(d string) bool {
	switch d {
	case "", DiagnosisHealthy, DiagnosisInfected, DiagnosisInvalid:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusToExamine, StatusConfirmed, StatusTreated, StatusRecovered, StatusDeceased:
		return true
	}
	return false
}
