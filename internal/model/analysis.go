package model

const (
	AnalysisStatusSuccess = "success"
	AnalysisStatusError   = "error"
)

// Error kinds the analyzer may report when a document cannot be extracted.
const (
	ErrKindNotMedical          = "not_medical_document"
	ErrKindEncryptedPDF        = "encrypted_pdf"
	ErrKindUnreadableContent   = "unreadable_content"
	ErrKindUnsupportedLanguage = "unsupported_language"
	ErrKindEmptyDocument       = "empty_document"
	ErrKindUnknown             = "unknown"
)

// RecordTypes is the fixed English vocabulary for record_type. Values stay
// in English regardless of the requested summary language.
var RecordTypes = []string{
	"lab_report",
	"imaging",
	"prescription",
	"discharge_summary",
	"consultation_note",
	"vaccination_record",
	"referral",
	"invoice",
	"other",
}

// DocumentAnalysis is the tagged result of analyzing one PDF. On error only
// the diagnostic fields are populated and nothing is persisted. On success
// RecordType, RecordName, and Summary are guaranteed non-empty.
type DocumentAnalysis struct {
	Status        string `json:"status"`
	ErrorType     string `json:"error_type,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	RecordType    string `json:"record_type,omitempty"`
	RecordSubtype string `json:"record_subtype,omitempty"`
	RecordName    string `json:"record_name,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Summary       string `json:"summary,omitempty"`
	DoctorName    string `json:"doctor_name,omitempty"`
	Date          string `json:"date,omitempty"`
}

func (a *DocumentAnalysis) Succeeded() bool {
	return a != nil && a.Status == AnalysisStatusSuccess
}

// AnalysisError builds an error-status result with the given kind.
func AnalysisError(kind, message string) *DocumentAnalysis {
	return &DocumentAnalysis{
		Status:       AnalysisStatusError,
		ErrorType:    kind,
		ErrorMessage: message,
	}
}
