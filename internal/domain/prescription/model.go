package prescription

import (
	"time"

	"github.com/simedi/gateway/internal/platform/gateway"
)

// Lifecycle states. Transitions happen on the ledger; the gateway only
// sets the initial state.
const (
	StatusDraft          = "draft"
	StatusActive         = "active"
	StatusOnHold         = "on-hold"
	StatusCancelled      = "cancelled"
	StatusCompleted      = "completed"
	StatusEnteredInError = "entered-in-error"
	StatusStopped        = "stopped"
	StatusUnknown        = "unknown"
)

var validStatuses = map[string]bool{
	StatusDraft: true, StatusActive: true, StatusOnHold: true, StatusCancelled: true,
	StatusCompleted: true, StatusEnteredInError: true, StatusStopped: true, StatusUnknown: true,
}

// Prescription is the ledger representation of a medical prescription.
// Every field is serialized, including empty ones.
type Prescription struct {
	ID                         string     `json:"id"`
	SubjectID                  string     `json:"subjectIdentifier"`
	Owner                      string     `json:"owner"`
	PreviousPrescriptionID     string     `json:"previousPrescriptionId"`
	Status                     string     `json:"status"`
	StatusChangedAt            *time.Time `json:"statusChangedAt"`
	Priority                   string     `json:"priority"`
	Medication                 string     `json:"medication"`
	Reason                     string     `json:"reason"`
	Notes                      string     `json:"notes"`
	TreatmentPeriod            string     `json:"treatmentPeriod"`
	TreatmentInstructions      string     `json:"treatmentInstructions"`
	ValidityPeriod             string     `json:"validityPeriod"`
	AuthorizedOn               *time.Time `json:"authorizedOn"`
	Quantity                   int        `json:"quantity"`
	ExpectedSupplyDuration     string     `json:"expectedSupplyDuration"`
	Practitioner               string     `json:"practitioner"`
	PractitionerDocumentNumber string     `json:"practitionerDocumentNumber"`
	Signature                  *string    `json:"signature"`
}

func (p *Prescription) RecordID() string      { return p.ID }
func (p *Prescription) SetRecordID(id string) { p.ID = id }
func (p *Prescription) RecordSubject() string { return p.SubjectID }

// IsSigned reports whether a signature has been attached.
func (p *Prescription) IsSigned() bool {
	return p.Signature != nil && *p.Signature != ""
}

// Transactions are the chaincode functions backing prescriptions.
var Transactions = gateway.Transactions{
	Create:                  "CreatePrescription",
	Read:                    "ReadPrescription",
	ReadMany:                "GetMultiplePrescriptions",
	ReadAll:                 "GetAllPrescriptions",
	QueryBySubjectAndStatus: "GetPrescriptionsBySubjectAndStatus",
	QueryPage:               "GetPrescriptionsBySubjectPaginated",
	AdvanceStatus:           "DeliverPrescription",
	Sign:                    "SignPrescription",
	Transfer:                "TransferPrescription",
	Delete:                  "DeletePrescription",
}
