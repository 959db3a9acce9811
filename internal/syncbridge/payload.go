package syncbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// PayloadBuilder assembles the JSON body pushed to the core service for a
// sync job. Each job type resolves its target entity plus the related rows
// the core side needs to import it standalone.
type PayloadBuilder struct {
	store      core.Store
	objects    core.ObjectClient
	presignTTL time.Duration
}

func NewPayloadBuilder(store core.Store, objects core.ObjectClient, presignTTL time.Duration) *PayloadBuilder {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &PayloadBuilder{store: store, objects: objects, presignTTL: presignTTL}
}

// Build dispatches on the job type. Unknown types are an error rather than a
// silent skip so a bad row surfaces in the job's last_error.
func (b *PayloadBuilder) Build(ctx context.Context, job *models.SyncJob) (map[string]any, error) {
	switch job.JobType {
	case models.SyncDocument:
		return b.documentPayload(ctx, job.TargetID)
	case models.SyncUnit:
		return b.unitPayload(ctx, job.TargetID)
	case models.SyncQA:
		return b.qaPayload(ctx, job.TargetID)
	case models.SyncVocabulary:
		return b.vocabularyPayload(ctx, job.TargetID)
	case models.SyncAuthority:
		return b.authorityPayload(ctx, job.TargetID)
	case models.SyncJurisdiction:
		return b.jurisdictionPayload(ctx, job.TargetID)
	default:
		return nil, fmt.Errorf("unknown sync job type %q", job.JobType)
	}
}

func isoDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return isoDate(*t)
}

func (b *PayloadBuilder) documentPayload(ctx context.Context, manifestationID string) (map[string]any, error) {
	m, err := b.store.GetManifestation(ctx, manifestationID)
	if err != nil {
		return nil, fmt.Errorf("manifestation %s: %w", manifestationID, err)
	}
	expr, err := b.store.GetExpression(ctx, m.ExprID)
	if err != nil {
		return nil, fmt.Errorf("expression %s: %w", m.ExprID, err)
	}
	work, err := b.store.GetWork(ctx, expr.WorkID)
	if err != nil {
		return nil, fmt.Errorf("work %s: %w", expr.WorkID, err)
	}
	jur, err := b.store.GetJurisdiction(ctx, work.JurisdictionID)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction %s: %w", work.JurisdictionID, err)
	}
	auth, err := b.store.GetAuthority(ctx, work.AuthorityID)
	if err != nil {
		return nil, fmt.Errorf("authority %s: %w", work.AuthorityID, err)
	}

	files, err := b.store.ListFilesByManifestation(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("files of manifestation %s: %w", m.ID, err)
	}
	filePayloads := make([]map[string]any, 0, len(files))
	for _, f := range files {
		entry := map[string]any{
			"original_filename": f.OriginalFilename,
			"content_type":      f.ContentType,
			"size_bytes":        f.SizeBytes,
			"sha256":            f.SHA256,
		}
		if b.objects != nil {
			url, err := b.objects.PresignGet(ctx, f.Bucket, f.ObjectKey, b.presignTTL)
			if err != nil {
				return nil, fmt.Errorf("presign %s/%s: %w", f.Bucket, f.ObjectKey, err)
			}
			entry["download_url"] = url
		}
		filePayloads = append(filePayloads, entry)
	}

	return map[string]any{
		"type": "document",
		"work": map[string]any{
			"id":              work.ID,
			"title_official":  work.TitleOfficial,
			"doc_type":        work.DocType,
			"eli_uri_work":    work.ELIURIWork,
			"urn_lex":         work.URNLex,
			"local_slug":      work.LocalSlug,
			"subject_summary": work.SubjectSummary,
		},
		"expression": map[string]any{
			"id":                  expr.ID,
			"language":            expr.Language,
			"consolidation_level": expr.ConsolidationLevel,
			"expression_date":     isoDate(expr.ExpressionDate),
			"eli_uri_expr":        expr.ELIURIExpr,
		},
		"manifestation": map[string]any{
			"id":                    m.ID,
			"publication_date":      isoDate(m.PublicationDate),
			"official_gazette_name": m.OfficialGazetteName,
			"gazette_issue_no":      m.GazetteIssueNo,
			"source_url":            m.SourceURL,
			"checksum_sha256":       m.ChecksumSHA256,
			"in_force_from":         isoDatePtr(m.InForceFrom),
			"in_force_to":           isoDatePtr(m.InForceTo),
			"repeal_status":         m.RepealStatus,
		},
		"jurisdiction": jurisdictionBody(jur),
		"authority":    authorityBody(auth),
		"files":        filePayloads,
		"exported_at":  isoTime(time.Now()),
	}, nil
}

func (b *PayloadBuilder) unitPayload(ctx context.Context, unitID string) (map[string]any, error) {
	u, err := b.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", unitID, err)
	}
	return map[string]any{
		"type": "unit",
		"unit": map[string]any{
			"id":           u.ID,
			"expr_id":      u.ExprID,
			"parent_id":    u.ParentID,
			"unit_type":    u.UnitType,
			"label":        u.Label,
			"number":       u.Number,
			"order_index":  u.OrderIndex,
			"path_label":   u.PathLabel,
			"content":      u.Content,
			"eli_fragment": u.ELIFragment,
			"xml_id":       u.XMLID,
		},
		"exported_at": isoTime(time.Now()),
	}, nil
}

func (b *PayloadBuilder) qaPayload(ctx context.Context, qaID string) (map[string]any, error) {
	e, err := b.store.GetQAEntry(ctx, qaID)
	if err != nil {
		return nil, fmt.Errorf("qa entry %s: %w", qaID, err)
	}
	tags := make([]map[string]any, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, map[string]any{"term": t.Term, "code": t.Code})
	}
	return map[string]any{
		"type": "qa",
		"qa": map[string]any{
			"id":             e.ID,
			"question":       e.Question,
			"answer":         e.Answer,
			"status":         e.Status,
			"source_unit_id": e.SourceUnitID,
			"created_by":     e.CreatedBy,
			"reviewed_by":    e.ReviewedBy,
			"approved_by":    e.ApprovedBy,
			"tags":           tags,
		},
		"exported_at": isoTime(time.Now()),
	}, nil
}

func (b *PayloadBuilder) vocabularyPayload(ctx context.Context, vocabID string) (map[string]any, error) {
	v, err := b.store.GetVocabulary(ctx, vocabID)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", vocabID, err)
	}
	terms := make([]map[string]any, 0, len(v.Terms))
	for _, t := range v.Terms {
		terms = append(terms, map[string]any{
			"id":          t.ID,
			"term":        t.Term,
			"code":        t.Code,
			"description": t.Description,
			"is_active":   t.IsActive,
		})
	}
	return map[string]any{
		"type": "vocabulary",
		"vocabulary": map[string]any{
			"id":          v.ID,
			"name":        v.Name,
			"code":        v.Code,
			"description": v.Description,
			"terms":       terms,
		},
		"exported_at": isoTime(time.Now()),
	}, nil
}

func (b *PayloadBuilder) authorityPayload(ctx context.Context, id string) (map[string]any, error) {
	a, err := b.store.GetAuthority(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("authority %s: %w", id, err)
	}
	return map[string]any{
		"type":        "authority",
		"authority":   authorityBody(a),
		"exported_at": isoTime(time.Now()),
	}, nil
}

func (b *PayloadBuilder) jurisdictionPayload(ctx context.Context, id string) (map[string]any, error) {
	j, err := b.store.GetJurisdiction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction %s: %w", id, err)
	}
	return map[string]any{
		"type":         "jurisdiction",
		"jurisdiction": jurisdictionBody(j),
		"exported_at":  isoTime(time.Now()),
	}, nil
}

func jurisdictionBody(j *models.Jurisdiction) map[string]any {
	return map[string]any{
		"id":          j.ID,
		"name":        j.Name,
		"code":        j.Code,
		"description": j.Description,
		"is_active":   j.IsActive,
	}
}

func authorityBody(a *models.IssuingAuthority) map[string]any {
	return map[string]any{
		"id":              a.ID,
		"name":            a.Name,
		"code":            a.Code,
		"jurisdiction_id": a.JurisdictionID,
		"description":     a.Description,
		"is_active":       a.IsActive,
	}
}
