package versionaudit

import "time"

// HomologationStatus is the SENIAT homologation state of an installed
// software version.
type HomologationStatus string

const (
	HomologationPending  HomologationStatus = "pending"
	HomologationApproved HomologationStatus = "approved"
	HomologationRejected HomologationStatus = "rejected"
	HomologationExpired  HomologationStatus = "expired"
)

// Record describes one installed software version: its per-file
// checksums, the combined hash, and its authorization state.
type Record struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	BuildNumber string `json:"build_number"`
	Hash        string `json:"hash"`

	InstalledAt time.Time `json:"installed_at"`
	InstalledBy string    `json:"installed_by"`

	HomologationID     string             `json:"homologation_id,omitempty"`
	HomologationStatus HomologationStatus `json:"homologation_status"`

	FilesChecksum map[string]string `json:"files_checksum"`

	IsAuthorized         bool       `json:"is_authorized"`
	AuthorizationExpires *time.Time `json:"authorization_expires,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IntegrityResult is the outcome of a version integrity check.
type IntegrityResult struct {
	Valid         bool     `json:"valid"`
	Detail        string   `json:"detail,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
}

// Authorization is the outcome of the version authorization gate.
type Authorization struct {
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
}

// VersionReport is the SENIAT version declaration.
type VersionReport struct {
	Version              string             `json:"version"`
	BuildNumber          string             `json:"build_number"`
	Hash                 string             `json:"hash"`
	InstalledAt          time.Time          `json:"installed_at"`
	InstalledBy          string             `json:"installed_by"`
	HomologationID       string             `json:"homologation_id,omitempty"`
	HomologationStatus   HomologationStatus `json:"homologation_status"`
	IsAuthorized         bool               `json:"is_authorized"`
	AuthorizationExpires *time.Time         `json:"authorization_expires,omitempty"`
	FilesCount           int                `json:"files_count"`
}
