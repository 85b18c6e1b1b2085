package store

import (
	"fmt"
	"strings"
)

// Severity of a detected crisis signal. Fixed at event creation; escalation is
// an administrative action recorded via InterventionTaken, never a severity
// rewrite.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("invalid severity %q", s)
}

type DetectionSource string

const (
	SourceChat    DetectionSource = "chat"
	SourceMood    DetectionSource = "mood"
	SourceJournal DetectionSource = "journal"
	SourceManual  DetectionSource = "manual"
)

func ParseDetectionSource(s string) (DetectionSource, error) {
	switch DetectionSource(strings.ToLower(strings.TrimSpace(s))) {
	case SourceChat:
		return SourceChat, nil
	case SourceMood:
		return SourceMood, nil
	case SourceJournal:
		return SourceJournal, nil
	case SourceManual:
		return SourceManual, nil
	}
	return "", fmt.Errorf("invalid detection source %q", s)
}

type UserResponse string

const (
	ResponseNone          UserResponse = ""
	ResponseAcknowledged  UserResponse = "acknowledged"
	ResponseDismissed     UserResponse = "dismissed"
	ResponseContactedHelp UserResponse = "contacted_help"
	ResponseNoResponse    UserResponse = "no_response"
)

func ParseUserResponse(s string) (UserResponse, error) {
	switch UserResponse(strings.ToLower(strings.TrimSpace(s))) {
	case ResponseAcknowledged:
		return ResponseAcknowledged, nil
	case ResponseDismissed:
		return ResponseDismissed, nil
	case ResponseContactedHelp:
		return ResponseContactedHelp, nil
	case ResponseNoResponse:
		return ResponseNoResponse, nil
	}
	return "", fmt.Errorf("invalid user response %q", s)
}

type Intervention string

const (
	InterventionNone               Intervention = "none"
	InterventionModalShown         Intervention = "modal_shown"
	InterventionCounselorNotified  Intervention = "counselor_notified"
	InterventionEmergencyContacted Intervention = "emergency_contacted"
	InterventionEscalated          Intervention = "escalated"
)

func ParseIntervention(s string) (Intervention, error) {
	switch Intervention(strings.ToLower(strings.TrimSpace(s))) {
	case InterventionNone:
		return InterventionNone, nil
	case InterventionModalShown:
		return InterventionModalShown, nil
	case InterventionCounselorNotified:
		return InterventionCounselorNotified, nil
	case InterventionEmergencyContacted:
		return InterventionEmergencyContacted, nil
	case InterventionEscalated:
		return InterventionEscalated, nil
	}
	return "", fmt.Errorf("invalid intervention %q", s)
}

// RiskLevel grades a history-based risk assessment. Unlike Severity it has an
// explicit "none" member because an assessment always produces a level.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)
