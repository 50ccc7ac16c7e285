// Package metrics declares the Prometheus instruments exposed on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_frames_processed_total",
		Help: "Frames submitted to the face oracle.",
	})

	FramesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_frames_matched_total",
		Help: "Frames the oracle reported as a match.",
	})

	RecognitionSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartattend_recognition_sessions_total",
		Help: "Completed recognition sessions by terminal outcome.",
	}, []string{"outcome"})

	AttendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartattend_attendance_marked_total",
		Help: "Attendance records written, by method.",
	}, []string{"method"})

	AttendanceDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_attendance_duplicates_total",
		Help: "Attendance submissions rejected as already marked.",
	})

	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_otp_issued_total",
		Help: "One-time passcodes issued to teachers.",
	})

	OTPVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartattend_otp_verifications_total",
		Help: "OTP verification attempts by outcome.",
	}, []string{"outcome"})
)
