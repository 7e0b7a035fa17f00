package dto

import (
	"time"

	"github.com/statuscore/incident-registry/internal/models"
)

// The incident form submits camelCase field names. Each json tag below
// is the single external alias of the matching snake_case model field;
// the mapping is static and total for the creation contract.

// DocumentStub is a related-document write payload. Stubs missing
// either the title or the url are dropped, not rejected.
type DocumentStub struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CreateIncidentRequest is the write contract for incident creation.
type CreateIncidentRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`

	Level string `json:"level"`
	Scope string `json:"scope"`

	SafetyCompliance string `json:"safetyCompliance"`
	SecurityPrivacy  string `json:"securityPrivacy"`
	DataQuality      string `json:"dataQuality"`
	PSD2Impact       string `json:"psd2Impact"`

	StartedAt       *time.Time `json:"startedAt"`
	DetectedAt      *time.Time `json:"incidentDetectedAt"`
	TimeFormat      string     `json:"timeFormat"`
	DetectionSource string     `json:"detectionSource"`
	IncidentType    string     `json:"incidentType"`

	ImpactedLocations []string `json:"impactedLocations"`
	ImpactedParties   []string `json:"impactedParties"`
	ImpactedAssets    []string `json:"impactedAssets"`
	ImpactedAreas     []string `json:"impactedAreas"`

	IncidentCommander string `json:"incidentCommander" validate:"omitempty,email"`
	ReportingOrg      string `json:"reportingOrg"`

	EstimatedTimeToMitigation   string `json:"estimatedTimeToMitigation"`
	FirstDetectedIn             string `json:"firstDetectedIn"`
	AdditionalSubscribers       string `json:"additionalSubscribers"`
	SafetyComplianceDocumentURL string `json:"scImpactDocumentUrl" validate:"omitempty,url"`

	L5Confirmation                 bool  `json:"l5Confirmation"`
	MitigationPolicyAcknowledgment bool  `json:"mitigationPolicyAcknowledgment"`
	SendEmailNotifications         *bool `json:"sendEmailNotifications"`

	Status string `json:"status"`

	RelatedDocuments []DocumentStub `json:"relatedDocuments"`
}

// ToModel maps the external payload onto a model, applying creation
// defaults for omitted fields.
func (r CreateIncidentRequest) ToModel() models.Incident {
	incident := models.Incident{
		Title:            r.Title,
		Description:      r.Description,
		Level:            r.Level,
		Scope:            r.Scope,
		SafetyCompliance: r.SafetyCompliance,
		SecurityPrivacy:  r.SecurityPrivacy,
		DataQuality:      r.DataQuality,
		PSD2Impact:       r.PSD2Impact,

		StartedAt:       r.StartedAt,
		DetectedAt:      r.DetectedAt,
		TimeFormat:      defaultString(r.TimeFormat, "Local Time"),
		DetectionSource: defaultString(r.DetectionSource, "Manual"),
		IncidentType:    defaultString(r.IncidentType, "Planned"),

		ImpactedLocations: toList(r.ImpactedLocations),
		ImpactedParties:   toList(r.ImpactedParties),
		ImpactedAssets:    toList(r.ImpactedAssets),
		ImpactedAreas:     toList(r.ImpactedAreas),

		IncidentCommander: r.IncidentCommander,
		ReportingOrg:      r.ReportingOrg,

		EstimatedTimeToMitigation:   defaultString(r.EstimatedTimeToMitigation, "unknown"),
		FirstDetectedIn:             r.FirstDetectedIn,
		AdditionalSubscribers:       r.AdditionalSubscribers,
		SafetyComplianceDocumentURL: r.SafetyComplianceDocumentURL,

		L5Confirmation:                 r.L5Confirmation,
		MitigationPolicyAcknowledgment: r.MitigationPolicyAcknowledgment,
		SendEmailNotifications:         true,

		Status: defaultString(r.Status, models.StatusReported),
	}
	if r.SendEmailNotifications != nil {
		incident.SendEmailNotifications = *r.SendEmailNotifications
	}
	return incident
}

// UpdateIncidentRequest is the partial-update contract. Nil fields are
// left untouched; a non-nil RelatedDocuments list fully replaces the
// stored document set.
type UpdateIncidentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	Level *string `json:"level"`
	Scope *string `json:"scope"`

	SafetyCompliance *string `json:"safetyCompliance"`
	SecurityPrivacy  *string `json:"securityPrivacy"`
	DataQuality      *string `json:"dataQuality"`
	PSD2Impact       *string `json:"psd2Impact"`

	StartedAt       *time.Time `json:"startedAt"`
	DetectedAt      *time.Time `json:"incidentDetectedAt"`
	TimeFormat      *string    `json:"timeFormat"`
	DetectionSource *string    `json:"detectionSource"`
	IncidentType    *string    `json:"incidentType"`

	ImpactedLocations *[]string `json:"impactedLocations"`
	ImpactedParties   *[]string `json:"impactedParties"`
	ImpactedAssets    *[]string `json:"impactedAssets"`
	ImpactedAreas     *[]string `json:"impactedAreas"`

	IncidentCommander *string `json:"incidentCommander" validate:"omitempty,email"`
	ReportingOrg      *string `json:"reportingOrg"`

	EstimatedTimeToMitigation   *string `json:"estimatedTimeToMitigation"`
	FirstDetectedIn             *string `json:"firstDetectedIn"`
	AdditionalSubscribers       *string `json:"additionalSubscribers"`
	SafetyComplianceDocumentURL *string `json:"scImpactDocumentUrl" validate:"omitempty,url"`

	L5Confirmation                 *bool `json:"l5Confirmation"`
	MitigationPolicyAcknowledgment *bool `json:"mitigationPolicyAcknowledgment"`
	SendEmailNotifications         *bool `json:"sendEmailNotifications"`

	Status *string `json:"status"`

	RelatedDocuments *[]DocumentStub `json:"relatedDocuments"`
}

// ApplyTo copies the supplied fields onto an existing incident.
func (r UpdateIncidentRequest) ApplyTo(incident *models.Incident) {
	setString(r.Title, &incident.Title)
	setString(r.Description, &incident.Description)
	setString(r.Level, &incident.Level)
	setString(r.Scope, &incident.Scope)
	setString(r.SafetyCompliance, &incident.SafetyCompliance)
	setString(r.SecurityPrivacy, &incident.SecurityPrivacy)
	setString(r.DataQuality, &incident.DataQuality)
	setString(r.PSD2Impact, &incident.PSD2Impact)

	if r.StartedAt != nil {
		incident.StartedAt = r.StartedAt
	}
	if r.DetectedAt != nil {
		incident.DetectedAt = r.DetectedAt
	}
	setString(r.TimeFormat, &incident.TimeFormat)
	setString(r.DetectionSource, &incident.DetectionSource)
	setString(r.IncidentType, &incident.IncidentType)

	if r.ImpactedLocations != nil {
		incident.ImpactedLocations = toList(*r.ImpactedLocations)
	}
	if r.ImpactedParties != nil {
		incident.ImpactedParties = toList(*r.ImpactedParties)
	}
	if r.ImpactedAssets != nil {
		incident.ImpactedAssets = toList(*r.ImpactedAssets)
	}
	if r.ImpactedAreas != nil {
		incident.ImpactedAreas = toList(*r.ImpactedAreas)
	}

	setString(r.IncidentCommander, &incident.IncidentCommander)
	setString(r.ReportingOrg, &incident.ReportingOrg)
	setString(r.EstimatedTimeToMitigation, &incident.EstimatedTimeToMitigation)
	setString(r.FirstDetectedIn, &incident.FirstDetectedIn)
	setString(r.AdditionalSubscribers, &incident.AdditionalSubscribers)
	setString(r.SafetyComplianceDocumentURL, &incident.SafetyComplianceDocumentURL)

	if r.L5Confirmation != nil {
		incident.L5Confirmation = *r.L5Confirmation
	}
	if r.MitigationPolicyAcknowledgment != nil {
		incident.MitigationPolicyAcknowledgment = *r.MitigationPolicyAcknowledgment
	}
	if r.SendEmailNotifications != nil {
		incident.SendEmailNotifications = *r.SendEmailNotifications
	}
	setString(r.Status, &incident.Status)
}

// StatusRequest is the update_status payload.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateEntryRequest appends one entry to an incident's update log.
type UpdateEntryRequest struct {
	Content    string `json:"content" validate:"required"`
	Author     string `json:"author" validate:"required,email"`
	UpdateType string `json:"update_type"`
}

// DocumentRequest is the direct document CRUD write payload.
type DocumentRequest struct {
	IncidentID int64  `json:"incident_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	URL        string `json:"url" validate:"required,url"`
}

// DocumentPatchRequest partially updates a document. The parent
// incident is immutable and has no counterpart here.
type DocumentPatchRequest struct {
	Title *string `json:"title"`
	URL   *string `json:"url" validate:"omitempty,url"`
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func setString(src *string, dst *string) {
	if src != nil {
		*dst = *src
	}
}

func toList(values []string) models.StringList {
	if values == nil {
		return models.StringList{}
	}
	return models.StringList(values)
}
