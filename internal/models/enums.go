package models

// DocType classifies an InstrumentWork.
type DocType string

const (
	DocTypeLaw         DocType = "law"
	DocTypeBylaw       DocType = "bylaw"
	DocTypeCircular    DocType = "circular"
	DocTypeRuling      DocType = "ruling"
	DocTypeDecree      DocType = "decree"
	DocTypeRegulation  DocType = "regulation"
	DocTypeInstruction DocType = "instruction"
	DocTypeOther       DocType = "other"
)

// ConsolidationLevel marks how an expression was assembled from its sources.
type ConsolidationLevel string

const (
	ConsolidationBase         ConsolidationLevel = "base"
	ConsolidationConsolidated ConsolidationLevel = "consolidated"
	ConsolidationAnnotated    ConsolidationLevel = "annotated"
)

// RepealStatus of a manifestation.
type RepealStatus string

const (
	RepealInForce  RepealStatus = "in_force"
	RepealRepealed RepealStatus = "repealed"
)

// UnitType identifies the structural role of a LegalUnit inside an instrument.
type UnitType string

const (
	UnitPart      UnitType = "part"
	UnitChapter   UnitType = "chapter"
	UnitSection   UnitType = "section"
	UnitArticle   UnitType = "article"
	UnitClause    UnitType = "clause"
	UnitSubclause UnitType = "subclause"
	UnitNote      UnitType = "note"
	UnitAppendix  UnitType = "appendix"
)

var unitTypeNames = map[UnitType]string{
	UnitPart:      "بخش",
	UnitChapter:   "فصل",
	UnitSection:   "قسمت",
	UnitArticle:   "ماده",
	UnitClause:    "بند",
	UnitSubclause: "زیربند",
	UnitNote:      "تبصره",
	UnitAppendix:  "ضمیمه",
}

// Display returns the Persian display name used in citation payloads.
func (t UnitType) Display() string {
	if n, ok := unitTypeNames[t]; ok {
		return n
	}
	return string(t)
}

// IngestStatus is the lifecycle of one IngestLog row.
type IngestStatus string

const (
	IngestPending    IngestStatus = "pending"
	IngestProcessing IngestStatus = "processing"
	IngestSuccess    IngestStatus = "success"
	IngestFailed     IngestStatus = "failed"
	IngestPartial    IngestStatus = "partial"
)

// QAStatus is the editorial workflow state of a QAEntry.
type QAStatus string

const (
	QADraft       QAStatus = "draft"
	QAUnderReview QAStatus = "under_review"
	QAApproved    QAStatus = "approved"
	QARejected    QAStatus = "rejected"
)

// SyncJobStatus is the delivery state of a SyncJob.
type SyncJobStatus string

const (
	SyncPending SyncJobStatus = "pending"
	SyncRunning SyncJobStatus = "running"
	SyncSuccess SyncJobStatus = "success"
	SyncError   SyncJobStatus = "error"
)

// SyncJobType selects which payload builder a SyncJob runs.
type SyncJobType string

const (
	SyncDocument     SyncJobType = "document"
	SyncUnit         SyncJobType = "unit"
	SyncQA           SyncJobType = "qa"
	SyncVocabulary   SyncJobType = "vocabulary"
	SyncAuthority    SyncJobType = "authority"
	SyncJurisdiction SyncJobType = "jurisdiction"
)
