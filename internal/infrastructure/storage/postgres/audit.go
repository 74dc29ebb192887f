package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "pcp/internal/core/context"
	"pcp/internal/domain/plan"
)

// CompressionAlgo specifies how an audit summary is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the summary size above which it is stored
// zstd-compressed. Runs with many warnings produce large summaries.
const DefaultCompressThreshold = 8 * 1024

var _ plan.AuditLogger = (*AuditService)(nil)

// auditRow mirrors pcp.calc_audit.
type auditRow struct {
	ID                int64           `db:"audit_id"`
	PlanID            int64           `db:"plan_id"`
	Action            string          `db:"action"`
	ExecutedBy        string          `db:"executado_por"`
	Summary           json.RawMessage `db:"summary"`
	SummaryCompressed []byte          `db:"summary_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"criado_em"`
}

// AuditService records recalculation runs in pcp.calc_audit.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates an audit service. threshold <= 0 uses
// DefaultCompressThreshold.
func NewAuditService(txManager *TxManager, threshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Close releases the zstd decoder.
func (s *AuditService) Close() {
	s.decoder.Close()
}

// LogRecalculation stores the summary of one run.
func (s *AuditService) LogRecalculation(ctx context.Context, planID int64, summary *plan.RecalcSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	row := s.encode(payload)
	row.PlanID = planID
	row.Action = plan.AuditActionRecalculate
	row.ExecutedBy = appctx.GetUsername(ctx)
	row.CreatedAt = summary.CalculatedAt
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO pcp.calc_audit (
			plan_id, action, executado_por,
			summary, summary_compressed, compression_algo, criado_em
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, q,
		row.PlanID, row.Action, row.ExecutedBy,
		row.Summary, row.SummaryCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calc_audit: %w", err)
	}
	return nil
}

// History returns the latest audit records of a plan, newest first, with
// summaries decompressed.
func (s *AuditService) History(ctx context.Context, planID int64, limit int) ([]plan.AuditRecord, error) {
	const q = `
		SELECT audit_id, plan_id, action, executado_por,
		       summary, summary_compressed, compression_algo, criado_em
		FROM pcp.calc_audit
		WHERE plan_id = $1
		ORDER BY criado_em DESC, audit_id DESC
		LIMIT $2
	`
	var rows []auditRow
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, q, planID, limit); err != nil {
		return nil, fmt.Errorf("query calc_audit: %w", err)
	}

	records := make([]plan.AuditRecord, 0, len(rows))
	for _, r := range rows {
		summary, err := s.decode(r)
		if err != nil {
			return nil, fmt.Errorf("audit %d: %w", r.ID, err)
		}
		records = append(records, plan.AuditRecord{
			ID:         r.ID,
			PlanID:     r.PlanID,
			Action:     r.Action,
			ExecutedBy: r.ExecutedBy,
			Summary:    summary,
			CreatedAt:  r.CreatedAt,
		})
	}
	return records, nil
}

func (s *AuditService) encode(payload []byte) auditRow {
	if len(payload) > s.compressThreshold {
		return auditRow{
			SummaryCompressed: s.encoder.EncodeAll(payload, nil),
			CompressionAlgo:   CompressionZstd,
		}
	}
	return auditRow{Summary: payload, CompressionAlgo: CompressionNone}
}

func (s *AuditService) decode(r auditRow) (json.RawMessage, error) {
	if r.CompressionAlgo != CompressionZstd {
		return r.Summary, nil
	}
	out, err := s.decoder.DecodeAll(r.SummaryCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress summary: %w", err)
	}
	return out, nil
}
