package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/shopspring/decimal"
)

// SnapshotRepository reads and writes the reconciliation record sets
type SnapshotRepository struct {
	db *PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// LoadSnapshot reads, in one repeatable-read transaction, the tokens whose owner
// may match investor, the reports of their entities or paying investor, those
// reports' transactions and the referenced entity profiles. Owner and recipient
// are prefiltered on their stored canonical identity; exact matching is left to
// the engine. An unusable investor yields an empty snapshot.
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, investor string) (*models.Snapshot, error) {
	investor, ok := identity.Canonical(investor)
	if !ok {
		return &models.Snapshot{}, nil
	}

	tx, err := r.db.Pool().BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // nolint:errcheck // read-only
	}()

	tokens, err := queryTokens(ctx, tx, investor)
	if err != nil {
		return nil, err
	}

	entityIDs := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Metadata != nil && t.Metadata.OriginEntityID != "" {
			entityIDs = append(entityIDs, t.Metadata.OriginEntityID.String())
		}
	}

	reportRows, err := queryReports(ctx, tx, entityIDs, investor)
	if err != nil {
		return nil, err
	}

	rowIDs := make([]int64, 0, len(reportRows))
	for _, rr := range reportRows {
		rowIDs = append(rowIDs, rr.rowID)
		if rr.report.OriginEntityID != "" {
			entityIDs = append(entityIDs, rr.report.OriginEntityID.String())
		}
	}

	txRows, err := queryTransactions(ctx, tx, rowIDs)
	if err != nil {
		return nil, err
	}

	profiles, err := queryProfiles(ctx, tx, uniqueStrings(entityIDs))
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Tokens:   tokens,
		Reports:  assembleReports(reportRows, txRows),
		Profiles: profiles,
	}, nil
}

const selectTokensQuery = `
	SELECT token_id, owner, has_metadata, name, description,
	       price::text, revenue_share_bps::text, origin_entity_id, minted_at, image_ref
	FROM tokens
	WHERE owner_canonical = $1
	ORDER BY token_id
`

func queryTokens(ctx context.Context, q pgx.Tx, investor string) ([]models.TokenRecord, error) {
	rows, err := q.Query(ctx, selectTokensQuery, investor)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.TokenRecord
	for rows.Next() {
		var (
			tokenID, owner                        string
			hasMetadata                           bool
			name, description, entityID, imageRef *string
			price, bps                            *string
			mintedAt                              *int64
		)
		if err := rows.Scan(&tokenID, &owner, &hasMetadata, &name, &description,
			&price, &bps, &entityID, &mintedAt, &imageRef); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}

		t := models.TokenRecord{TokenID: models.RecordID(tokenID), Owner: owner}
		if hasMetadata {
			t.Metadata = &models.TokenMetadata{
				Name:                    deref(name),
				Description:             deref(description),
				Price:                   parseNumeric(price),
				RevenueShareBasisPoints: parseNumeric(bps),
				OriginEntityID:          models.RecordID(deref(entityID)),
				MintedAt:                mintedAt,
				ImageRef:                deref(imageRef),
			}
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// reportRow keeps the surrogate key that links transactions to their report
type reportRow struct {
	rowID  int64
	report models.RevenueReport
}

const selectReportsQuery = `
	SELECT r.row_id, r.id, r.origin_entity_id, r.amount::text, r.description, r.report_date, r.distributed
	FROM revenue_reports r
	WHERE r.origin_entity_id = ANY($1)
	   OR EXISTS (
	        SELECT 1 FROM distribution_transactions d
	        WHERE d.report_id = r.row_id AND d.recipient_canonical = $2
	   )
	ORDER BY r.position, r.row_id
`

func queryReports(ctx context.Context, q pgx.Tx, entityIDs []string, investor string) ([]reportRow, error) {
	rows, err := q.Query(ctx, selectReportsQuery, entityIDs, investor)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue reports: %w", err)
	}
	defer rows.Close()

	var reports []reportRow
	for rows.Next() {
		var (
			rowID                     int64
			id, entityID, description *string
			amount                    *string
			reportDate                *int64
			distributed               bool
		)
		if err := rows.Scan(&rowID, &id, &entityID, &amount, &description, &reportDate, &distributed); err != nil {
			return nil, fmt.Errorf("failed to scan revenue report: %w", err)
		}
		reports = append(reports, reportRow{
			rowID: rowID,
			report: models.RevenueReport{
				ID:             models.RecordID(deref(id)),
				OriginEntityID: models.RecordID(deref(entityID)),
				Amount:         parseNumeric(amount),
				Description:    deref(description),
				ReportDate:     reportDate,
				Distributed:    distributed,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revenue reports: %w", err)
	}

	return reports, nil
}

// transactionRow is one distribution transaction with its parent report key
type transactionRow struct {
	reportRowID int64
	tx          models.DistributionTransaction
}

const selectTransactionsQuery = `
	SELECT report_id, token_id, recipient, amount::text, tx_id
	FROM distribution_transactions
	WHERE report_id = ANY($1)
	ORDER BY report_id, position
`

func queryTransactions(ctx context.Context, q pgx.Tx, reportRowIDs []int64) ([]transactionRow, error) {
	if len(reportRowIDs) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, selectTransactionsQuery, reportRowIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution transactions: %w", err)
	}
	defer rows.Close()

	var txs []transactionRow
	for rows.Next() {
		var (
			reportRowID              int64
			tokenID, recipient, txID *string
			amount                   *string
		)
		if err := rows.Scan(&reportRowID, &tokenID, &recipient, &amount, &txID); err != nil {
			return nil, fmt.Errorf("failed to scan distribution transaction: %w", err)
		}
		txs = append(txs, transactionRow{
			reportRowID: reportRowID,
			tx: models.DistributionTransaction{
				TokenID:   models.RecordID(deref(tokenID)),
				Recipient: deref(recipient),
				Amount:    parseNumeric(amount),
				TxID:      models.RecordID(deref(txID)),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution transactions: %w", err)
	}

	return txs, nil
}

const selectProfilesQuery = `
	SELECT id, name, industry, country
	FROM entity_profiles
	WHERE id = ANY($1)
	ORDER BY id
`

func queryProfiles(ctx context.Context, q pgx.Tx, entityIDs []string) ([]models.EntityProfile, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, selectProfilesQuery, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.EntityProfile
	for rows.Next() {
		var (
			id                      string
			name, industry, country *string
		)
		if err := rows.Scan(&id, &name, &industry, &country); err != nil {
			return nil, fmt.Errorf("failed to scan entity profile: %w", err)
		}
		profiles = append(profiles, models.EntityProfile{
			ID:       models.RecordID(id),
			Name:     deref(name),
			Industry: deref(industry),
			Country:  deref(country),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entity profiles: %w", err)
	}

	return profiles, nil
}

// assembleReports attaches transactions to their reports, keeping both orders
func assembleReports(reports []reportRow, txs []transactionRow) []models.RevenueReport {
	byReport := make(map[int64][]models.DistributionTransaction, len(reports))
	for _, t := range txs {
		byReport[t.reportRowID] = append(byReport[t.reportRowID], t.tx)
	}

	out := make([]models.RevenueReport, 0, len(reports))
	for _, rr := range reports {
		report := rr.report
		report.DistributionTransactions = byReport[rr.rowID]
		out = append(out, report)
	}
	return out
}

// ImportSnapshot writes a snapshot into the record source in one transaction.
// Tokens and profiles are upserted; reports are appended after existing ones.
func (r *SnapshotRepository) ImportSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // nolint:errcheck // no-op after commit
	}()

	batch := &pgx.Batch{}
	for _, p := range snapshot.Profiles {
		batch.Queue(`
			INSERT INTO entity_profiles (id, name, industry, country)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, industry = EXCLUDED.industry, country = EXCLUDED.country
		`, p.ID.String(), p.Name, p.Industry, p.Country)
	}
	for _, t := range snapshot.Tokens {
		md := t.Metadata
		if md == nil {
			md = &models.TokenMetadata{}
		}
		batch.Queue(`
			INSERT INTO tokens (token_id, owner, owner_canonical, has_metadata, name, description, price, revenue_share_bps, origin_entity_id, minted_at, image_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11)
			ON CONFLICT (token_id) DO UPDATE SET
				owner = EXCLUDED.owner, owner_canonical = EXCLUDED.owner_canonical, has_metadata = EXCLUDED.has_metadata, name = EXCLUDED.name,
				description = EXCLUDED.description, price = EXCLUDED.price,
				revenue_share_bps = EXCLUDED.revenue_share_bps, origin_entity_id = EXCLUDED.origin_entity_id,
				minted_at = EXCLUDED.minted_at, image_ref = EXCLUDED.image_ref
		`, t.TokenID.String(), t.Owner, canonicalOrNil(t.Owner), t.Metadata != nil, md.Name, md.Description,
			numericText(md.Price), numericText(md.RevenueShareBasisPoints),
			md.OriginEntityID.String(), md.MintedAt, md.ImageRef)
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("failed to import tokens and profiles: %w", err)
	}

	var position int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM revenue_reports`).Scan(&position); err != nil {
		return fmt.Errorf("failed to read report position: %w", err)
	}

	for i, report := range snapshot.Reports {
		var rowID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO revenue_reports (id, origin_entity_id, amount, description, report_date, distributed, position)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
			RETURNING row_id
		`, nullIfEmpty(report.ID.String()), report.OriginEntityID.String(), numericText(report.Amount),
			report.Description, report.ReportDate, report.Distributed, position+int64(i)).Scan(&rowID)
		if err != nil {
			return fmt.Errorf("failed to import revenue report %d: %w", i, err)
		}

		txBatch := &pgx.Batch{}
		for j, dt := range report.DistributionTransactions {
			txBatch.Queue(`
				INSERT INTO distribution_transactions (report_id, position, token_id, recipient, recipient_canonical, amount, tx_id)
				VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
			`, rowID, j, dt.TokenID.String(), dt.Recipient, canonicalOrNil(dt.Recipient),
				numericText(dt.Amount), nullIfEmpty(dt.TxID.String()))
		}
		if err := sendBatch(ctx, tx, txBatch); err != nil {
			return fmt.Errorf("failed to import transactions of report %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

// parseNumeric converts NUMERIC text to a decimal; NULL and NaN become nil
func parseNumeric(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func numericText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// canonicalOrNil returns the canonical identity of raw, or nil when raw is unusable
func canonicalOrNil(raw string) *string {
	canonical, ok := identity.Canonical(raw)
	if !ok {
		return nil
	}
	return &canonical
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
