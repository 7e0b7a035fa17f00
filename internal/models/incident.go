package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity levels and scopes with special business-rule meaning. The
// full value sets live in the shared choices config; these two are
// referenced directly by the L5 confirmation rules.
const (
	LevelL5     = "L5"
	ScopeMedium = "Medium"
	ScopeHigh   = "High"

	StatusReported = "reported"
)

// StringList maps a JSONB column onto a []string. A nil list is stored
// and returned as an empty JSON array, never null.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Display joins the list for human-readable output.
func (l StringList) Display() string {
	return strings.Join(l, ", ")
}

// Incident is the root record of the registry.
type Incident struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`

	Level string `db:"level" json:"level"`
	Scope string `db:"scope" json:"scope"`

	SafetyCompliance string `db:"safety_compliance" json:"safety_compliance"`
	SecurityPrivacy  string `db:"security_privacy" json:"security_privacy"`
	DataQuality      string `db:"data_quality" json:"data_quality"`
	PSD2Impact       string `db:"psd2_impact" json:"psd2_impact"`

	StartedAt       *time.Time `db:"started_at" json:"started_at"`
	DetectedAt      *time.Time `db:"detected_at" json:"detected_at"`
	TimeFormat      string     `db:"time_format" json:"time_format"`
	DetectionSource string     `db:"detection_source" json:"detection_source"`
	IncidentType    string     `db:"incident_type" json:"incident_type"`

	ImpactedLocations StringList `db:"impacted_locations" json:"impacted_locations"`
	ImpactedParties   StringList `db:"impacted_parties" json:"impacted_parties"`
	ImpactedAssets    StringList `db:"impacted_assets" json:"impacted_assets"`
	ImpactedAreas     StringList `db:"impacted_areas" json:"impacted_areas"`

	IncidentCommander string `db:"incident_commander" json:"incident_commander"`
	ReportingOrg      string `db:"reporting_org" json:"reporting_org"`

	EstimatedTimeToMitigation  string `db:"estimated_time_to_mitigation" json:"estimated_time_to_mitigation"`
	FirstDetectedIn            string `db:"first_detected_in" json:"first_detected_in"`
	AdditionalSubscribers      string `db:"additional_subscribers" json:"additional_subscribers"`
	SafetyComplianceDocumentURL string `db:"safety_compliance_document_url" json:"safety_compliance_document_url"`

	L5Confirmation                  bool `db:"l5_confirmation" json:"l5_confirmation"`
	MitigationPolicyAcknowledgment  bool `db:"mitigation_policy_acknowledgment" json:"mitigation_policy_acknowledgment"`
	SendEmailNotifications          bool `db:"send_email_notifications" json:"send_email_notifications"`

	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy *string   `db:"created_by" json:"created_by"`
}

// IsL5High reports the most severe level/scope combination.
func (i *Incident) IsL5High() bool {
	return i.Level == LevelL5 && i.Scope == ScopeHigh
}

// RequiresMitigationPolicy reports whether the mitigation policy
// acknowledgment applies to this incident.
func (i *Incident) RequiresMitigationPolicy() bool {
	return i.Level == LevelL5 && (i.Scope == ScopeMedium || i.Scope == ScopeHigh)
}

// IncidentDetail is the full read projection including children and
// computed fields.
type IncidentDetail struct {
	Incident
	Documents                []IncidentDocument `json:"documents"`
	Updates                  []IncidentUpdate   `json:"updates"`
	IsL5High                 bool               `json:"is_l5_high"`
	RequiresMitigationPolicy bool               `json:"requires_mitigation_policy"`
	ImpactedLocationsDisplay string             `json:"impacted_locations_display"`
	ImpactedPartiesDisplay   string             `json:"impacted_parties_display"`
}

// NewIncidentDetail assembles the detail projection.
func NewIncidentDetail(incident Incident, documents []IncidentDocument, updates []IncidentUpdate) *IncidentDetail {
	if documents == nil {
		documents = []IncidentDocument{}
	}
	if updates == nil {
		updates = []IncidentUpdate{}
	}
	return &IncidentDetail{
		Incident:                 incident,
		Documents:                documents,
		Updates:                  updates,
		IsL5High:                 incident.IsL5High(),
		RequiresMitigationPolicy: incident.RequiresMitigationPolicy(),
		ImpactedLocationsDisplay: incident.ImpactedLocations.Display(),
		ImpactedPartiesDisplay:   incident.ImpactedParties.Display(),
	}
}

// IncidentSummary is the trimmed list projection.
type IncidentSummary struct {
	ID                       int64      `json:"id"`
	Title                    string     `json:"title"`
	Description              string     `json:"description"`
	Level                    string     `json:"level"`
	Scope                    string     `json:"scope"`
	IncidentType             string     `json:"incident_type"`
	Status                   string     `json:"status"`
	IncidentCommander        string     `json:"incident_commander"`
	StartedAt                *time.Time `json:"started_at"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	ImpactedLocationsDisplay string     `json:"impacted_locations_display"`
	ImpactedPartiesDisplay   string     `json:"impacted_parties_display"`
	IsL5High                 bool       `json:"is_l5_high"`
}

// NewIncidentSummary projects an incident row for list responses.
func NewIncidentSummary(incident Incident) IncidentSummary {
	return IncidentSummary{
		ID:                       incident.ID,
		Title:                    incident.Title,
		Description:              incident.Description,
		Level:                    incident.Level,
		Scope:                    incident.Scope,
		IncidentType:             incident.IncidentType,
		Status:                   incident.Status,
		IncidentCommander:        incident.IncidentCommander,
		StartedAt:                incident.StartedAt,
		CreatedAt:                incident.CreatedAt,
		UpdatedAt:                incident.UpdatedAt,
		ImpactedLocationsDisplay: incident.ImpactedLocations.Display(),
		ImpactedPartiesDisplay:   incident.ImpactedParties.Display(),
		IsL5High:                 incident.IsL5High(),
	}
}

// IncidentFilter encapsulates list query parameters. Multi-value slices
// are OR-combined within a field and AND-combined across fields.
type IncidentFilter struct {
	Levels            []string
	Scopes            []string
	Statuses          []string
	Types             []string
	DetectionSources  []string
	ReportingOrgs     []string
	Commanders        []string
	ImpactedAssets    []string
	ImpactedAreas     []string
	ImpactedLocations []string
	ImpactedParties   []string
	Search            string

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StatisticsCell is one (level, scope, status) count from the grouped
// statistics scan.
type StatisticsCell struct {
	Level  string
	Scope  string
	Status string
	Count  int
}

// Statistics aggregates counts over a filtered incident scope.
type Statistics struct {
	TotalIncidents    int            `json:"total_incidents"`
	ByLevel           map[string]int `json:"by_level"`
	ByScope           map[string]int `json:"by_scope"`
	ByStatus          map[string]int `json:"by_status"`
	L5HighIncidents   int            `json:"l5_high_incidents"`
	CriticalIncidents int            `json:"critical_incidents"`
}

// Timeline reports the computed timing view of one incident. Elapsed
// values are seconds, null when the inputs are missing.
type Timeline struct {
	StartedAt        *time.Time `json:"started_at"`
	DetectedAt       *time.Time `json:"detected_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	TimeToDetection  *float64   `json:"time_to_detection"`
	TimeSinceStarted *float64   `json:"time_since_started"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
