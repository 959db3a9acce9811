package models

import (
	"time"
)

// Jurisdiction is a legal jurisdiction (e.g. national, provincial).
type Jurisdiction struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IssuingAuthority is the body that issues legal instruments.
type IssuingAuthority struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Code           string    `db:"code" json:"code"`
	JurisdictionID string    `db:"jurisdiction_id" json:"jurisdiction_id"`
	Description    string    `db:"description" json:"description"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Vocabulary is a controlled vocabulary; its terms tag QA entries.
type Vocabulary struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Code        string           `db:"code" json:"code"`
	Description string           `db:"description" json:"description"`
	Terms       []VocabularyTerm `db:"-" json:"terms,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// VocabularyTerm is one entry of a Vocabulary.
type VocabularyTerm struct {
	ID           string    `db:"id" json:"id"`
	VocabularyID string    `db:"vocabulary_id" json:"vocabulary_id"`
	Term         string    `db:"term" json:"term"`
	Code         string    `db:"code" json:"code"`
	Description  string    `db:"description" json:"description"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// InstrumentWork is the FRBR Work level: the abstract legal instrument.
type InstrumentWork struct {
	ID             string    `db:"id" json:"id"`
	TitleOfficial  string    `db:"title_official" json:"title_official"`
	DocType        DocType   `db:"doc_type" json:"doc_type"`
	JurisdictionID string    `db:"jurisdiction_id" json:"jurisdiction_id"`
	AuthorityID    string    `db:"authority_id" json:"authority_id"`
	ELIURIWork     string    `db:"eli_uri_work" json:"eli_uri_work"`
	URNLex         string    `db:"urn_lex" json:"urn_lex"`
	LocalSlug      string    `db:"local_slug" json:"local_slug"`
	SubjectSummary string    `db:"subject_summary" json:"subject_summary"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InstrumentExpression is the FRBR Expression level: one language/consolidation
// variant of a Work. (work, language, consolidation_level, expression_date) is
// unique.
type InstrumentExpression struct {
	ID                 string             `db:"id" json:"id"`
	WorkID             string             `db:"work_id" json:"work_id"`
	Language           string             `db:"language" json:"language"`
	ConsolidationLevel ConsolidationLevel `db:"consolidation_level" json:"consolidation_level"`
	ExpressionDate     time.Time          `db:"expression_date" json:"expression_date"`
	ELIURIExpr         string             `db:"eli_uri_expr" json:"eli_uri_expr"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// InstrumentManifestation is the FRBR Manifestation level: a concrete
// publication of an Expression. A repealed manifestation must carry InForceTo.
type InstrumentManifestation struct {
	ID                  string       `db:"id" json:"id"`
	ExprID              string       `db:"expr_id" json:"expr_id"`
	PublicationDate     time.Time    `db:"publication_date" json:"publication_date"`
	OfficialGazetteName string       `db:"official_gazette_name" json:"official_gazette_name"`
	GazetteIssueNo      string       `db:"gazette_issue_no" json:"gazette_issue_no"`
	SourceURL           string       `db:"source_url" json:"source_url"`
	ChecksumSHA256      string       `db:"checksum_sha256" json:"checksum_sha256"`
	InForceFrom         *time.Time   `db:"in_force_from" json:"in_force_from,omitempty"`
	InForceTo           *time.Time   `db:"in_force_to" json:"in_force_to,omitempty"`
	RepealStatus        RepealStatus `db:"repeal_status" json:"repeal_status"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// LegalUnit is one node in an instrument's structural tree (article, clause,
// note, ...). PathLabel is derived from the live parent chain on every save
// and is display-only.
type LegalUnit struct {
	ID              string    `db:"id" json:"id"`
	WorkID          string    `db:"work_id" json:"work_id,omitempty"`
	ExprID          string    `db:"expr_id" json:"expr_id,omitempty"`
	ManifestationID string    `db:"manifestation_id" json:"manifestation_id,omitempty"`
	ParentID        string    `db:"parent_id" json:"parent_id,omitempty"`
	UnitType        UnitType  `db:"unit_type" json:"unit_type"`
	Label           string    `db:"label" json:"label"`
	Number          string    `db:"number" json:"number"`
	OrderIndex      int       `db:"order_index" json:"order_index"`
	PathLabel       string    `db:"path_label" json:"path_label"`
	Content         string    `db:"content" json:"content"`
	ELIFragment     string    `db:"eli_fragment" json:"eli_fragment"`
	XMLID           string    `db:"xml_id" json:"xml_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Citation locates a chunk inside the instrument structure for downstream
// attribution. Persisted as the chunk's citation payload JSON.
type Citation struct {
	UnitType    string `json:"unit_type"`
	NumLabel    string `json:"num_label"`
	ELIFragment string `json:"eli_fragment"`
	XMLID       string `json:"xml_id"`
}

// Chunk is a token-bounded span of a unit's content prepared for retrieval.
// (expr_id, hash) is unique; reprocessing unchanged content inserts nothing.
type Chunk struct {
	ID          string    `db:"id" json:"id"`
	ExprID      string    `db:"expr_id" json:"expr_id"`
	UnitID      string    `db:"unit_id" json:"unit_id"`
	ChunkText   string    `db:"chunk_text" json:"chunk_text"`
	TokenCount  int       `db:"token_count" json:"token_count"`
	OverlapPrev int       `db:"overlap_prev" json:"overlap_prev"`
	Citation    Citation  `db:"citation_payload" json:"citation_payload"`
	Hash        string    `db:"hash" json:"hash"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChunkEmbedding is one model's vector for exactly one chunk. Re-embedding
// with a different model adds a row; the same model replaces nothing.
type ChunkEmbedding struct {
	ID        string    `db:"id" json:"id"`
	ChunkID   string    `db:"chunk_id" json:"chunk_id"`
	Model     string    `db:"model" json:"model"`
	Embedding []float32 `db:"embedding" json:"embedding"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChunkMatch is a similarity-search hit.
type ChunkMatch struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// IngestLog is the append-only audit record of one processing run.
type IngestLog struct {
	ID               string         `db:"id" json:"id"`
	OperationType    string         `db:"operation_type" json:"operation_type"`
	SourceSystem     string         `db:"source_system" json:"source_system"`
	Status           IngestStatus   `db:"status" json:"status"`
	RecordsProcessed int            `db:"records_processed" json:"records_processed"`
	RecordsFailed    int            `db:"records_failed" json:"records_failed"`
	ErrorMessage     string         `db:"error_message" json:"error_message"`
	Metadata         map[string]any `db:"metadata" json:"metadata"`
	CompletedAt      *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// FileAsset is an uploaded file attached to a manifestation or a unit
// (exactly one of the two).
type FileAsset struct {
	ID               string    `db:"id" json:"id"`
	ManifestationID  string    `db:"manifestation_id" json:"manifestation_id,omitempty"`
	UnitID           string    `db:"unit_id" json:"unit_id,omitempty"`
	Bucket           string    `db:"bucket" json:"bucket"`
	ObjectKey        string    `db:"object_key" json:"object_key"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	ContentType      string    `db:"content_type" json:"content_type"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	SHA256           string    `db:"sha256" json:"sha256"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// QAEntry is a reviewed question/answer pair grounded in a legal unit.
type QAEntry struct {
	ID           string           `db:"id" json:"id"`
	Question     string           `db:"question" json:"question"`
	Answer       string           `db:"answer" json:"answer"`
	Status       QAStatus         `db:"status" json:"status"`
	SourceUnitID string           `db:"source_unit_id" json:"source_unit_id,omitempty"`
	CreatedBy    string           `db:"created_by" json:"created_by"`
	ReviewedBy   string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ApprovedBy   string           `db:"approved_by" json:"approved_by,omitempty"`
	Tags         []VocabularyTerm `db:"-" json:"tags,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}
