package fhir

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ProfileVersion is the gematik e-prescription workflow profile targeted
	// by generated bundles.
	ProfileVersion = "1.2"

	pznSystem = "http://fhir.de/CodeSystem/ifa/pzn"
	kvidSystem = "http://fhir.de/sid/gkv/kvid-10"
)

// ScanResult is the outcome of validating raw QR content claimed to be an
// e-prescription token.
type ScanResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Profile string `json:"profile,omitempty"`
}

// ValidateQRData performs the structural sanity check applied to scanned
// prescription QR payloads before a mock bundle is generated for them.
func ValidateQRData(qrContent string) ScanResult {
	if len(qrContent) < 10 {
		return ScanResult{Valid: false, Error: "Invalid QR format or content too short"}
	}
	return ScanResult{
		Valid:   true,
		Message: "QR-Code successfully validated",
		Profile: "de.gematik.erezept-workflow.r4-" + ProfileVersion,
	}
}

// MockPrescriptionBundle generates a collection bundle with a Patient, a
// Practitioner and a MedicationRequest, shaped after the gematik e-Rezept
// workflow profile. In production these bundles would arrive from the
// Telematics Infrastructure; this generator stands in for it.
func MockPrescriptionBundle(patientName, medicationName, medicationPZN string) map[string]interface{} {
	prescriptionID := uuid.New().String()
	patientID := uuid.New().String()
	practitionerID := uuid.New().String()

	family := "Mustermann"
	given := []string{"Max"}
	if parts := strings.Fields(patientName); len(parts) > 0 {
		family = parts[len(parts)-1]
		if len(parts) > 1 {
			given = parts[:len(parts)-1]
		}
	}

	patient := map[string]interface{}{
		"resourceType": "Patient",
		"id":           patientID,
		"name":         []HumanName{{Family: family, Given: given}},
		"identifier":   []Identifier{{System: kvidSystem, Value: "X123456789"}},
	}

	practitioner := map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           practitionerID,
		"name":         []HumanName{{Family: "House", Prefix: []string{"Dr."}}},
		"identifier": []Identifier{{
			System: "https://fhir.kbv.de/NamingSystem/KBV_NS_Base_ANR",
			Value:  "123456789",
		}},
	}

	medication := CodeableConcept{Text: medicationName}
	if medicationPZN != "" {
		medication.Coding = []Coding{{System: pznSystem, Code: medicationPZN, Display: medicationName}}
	}

	medRequest := map[string]interface{}{
		"resourceType": "MedicationRequest",
		"id":           prescriptionID,
		"meta": Meta{
			Profile: []string{"https://gematik.de/fhir/erp/StructureDefinition/GEM_ERP_PR_MedicationRequest|" + ProfileVersion},
		},
		"status":                    "active",
		"intent":                    "order",
		"medicationCodeableConcept": medication,
		"subject":                   Reference{Reference: FormatReference("Patient", patientID)},
		"requester":                 Reference{Reference: FormatReference("Practitioner", practitionerID)},
		"authoredOn":                time.Now().UTC().Format(time.RFC3339),
		"medication_name":           medicationName,
		"pzn":                       medicationPZN,
	}

	entries := []map[string]interface{}{
		{"resource": medRequest},
		{"resource": patient},
		{"resource": practitioner},
	}

	return map[string]interface{}{
		"resourceType": "Bundle",
		"id":           uuid.New().String(),
		"type":         "collection",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"entry":        entries,
	}
}
