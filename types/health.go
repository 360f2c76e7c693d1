package types

// Load states of a reference dataset.
const (
	// StatusHealthy means the dataset loaded with rows.
	StatusHealthy = "healthy"

	// StatusDegraded means the dataset was read but has no usable rows.
	StatusDegraded = "degraded"

	// StatusUnhealthy means the dataset was unreadable and an empty table stands in.
	StatusUnhealthy = "unhealthy"
)

// HealthStatus reports the load state of one dataset or of all of them.
// Details carries diagnostics such as the dataset name, source path, row count
// or parse error.
type HealthStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy reports whether the status is StatusHealthy.
func (h HealthStatus) IsHealthy() bool { return h.Status == StatusHealthy }

// IsDegraded reports whether the status is StatusDegraded.
func (h HealthStatus) IsDegraded() bool { return h.Status == StatusDegraded }

// IsUnhealthy reports whether the status is StatusUnhealthy.
func (h HealthStatus) IsUnhealthy() bool { return h.Status == StatusUnhealthy }

// Dataset returns the dataset name recorded in Details, or "".
func (h HealthStatus) Dataset() string {
	name, _ := h.Details["dataset"].(string)
	return name
}

// NewHealthyStatus returns a healthy status without details.
func NewHealthyStatus(message string) HealthStatus {
	return HealthStatus{Status: StatusHealthy, Message: message}
}

// NewDegradedStatus returns a degraded status. details may be nil.
func NewDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: message, Details: details}
}

// NewUnhealthyStatus returns an unhealthy status. details may be nil.
func NewUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusUnhealthy, Message: message, Details: details}
}
