package vaccination

import (
	"time"

	"github.com/simedi/gateway/internal/platform/gateway"
)

const (
	StatusCompleted      = "completed"
	StatusEnteredInError = "entered-in-error"
	StatusNotDone        = "not-done"
)

var validStatuses = map[string]bool{
	StatusCompleted: true, StatusEnteredInError: true, StatusNotDone: true,
}

// Entry is one administered (or explicitly not administered) vaccine dose
// in a patient's vaccination record.
type Entry struct {
	ID                         string     `json:"id"`
	SubjectID                  string     `json:"subjectIdentifier"`
	Status                     string     `json:"status"`
	StatusChangedAt            *time.Time `json:"statusChangedAt"`
	StatusReason               string     `json:"statusReason"`
	VaccineCode                string     `json:"vaccineCode"`
	AdministeredProduct        string     `json:"administeredProduct"`
	Manufacturer               string     `json:"manufacturer"`
	LotNumber                  string     `json:"lotNumber"`
	ExpirationDate             *time.Time `json:"expirationDate"`
	Reactions                  string     `json:"reactions"`
	PractitionerLicense        string     `json:"practitionerLicense"`
	Practitioner               string     `json:"practitioner"`
	PractitionerDocumentNumber string     `json:"practitionerDocumentNumber"`
	Signature                  *string    `json:"signature"`
}

func (e *Entry) RecordID() string      { return e.ID }
func (e *Entry) SetRecordID(id string) { e.ID = id }
func (e *Entry) RecordSubject() string { return e.SubjectID }

// Transactions are the chaincode functions backing vaccination entries.
// Entries have no lifecycle transitions, signatures or owners.
var Transactions = gateway.Transactions{
	Create:                  "CreateVaccination",
	Read:                    "ReadVaccination",
	ReadMany:                "GetMultipleVaccinations",
	ReadAll:                 "GetAllVaccinations",
	QueryBySubjectAndStatus: "GetVaccinationsBySubjectAndStatus",
	QueryPage:               "GetVaccinationsBySubjectPaginated",
	Delete:                  "DeleteVaccination",
}
