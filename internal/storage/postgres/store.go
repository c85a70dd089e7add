package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	type                 TEXT NOT NULL CHECK (type IN ('income', 'expense', 'transfer')),
	amount               NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	description          TEXT NOT NULL DEFAULT '',
	date                 DATE NOT NULL,
	payment_method       TEXT,
	vendor               TEXT,
	category_id          TEXT NOT NULL DEFAULT '',
	account_id           TEXT NOT NULL DEFAULT '',
	installments         INTEGER,
	installment_no       INTEGER,
	installment_group_id TEXT
);
CREATE INDEX IF NOT EXISTS transactions_user_group_idx ON transactions (user_id, installment_group_id);
CREATE INDEX IF NOT EXISTS transactions_user_date_idx ON transactions (user_id, date);
`

const selectColumns = `id, user_id, type, amount, description, date, payment_method, vendor,
	category_id, account_id, installments, installment_no, installment_group_id`

// columns whitelists the fields that may appear in WHERE and ORDER BY
var columns = map[models.Field]string{
	models.FieldID:                 "id",
	models.FieldType:               "type",
	models.FieldAmount:             "amount",
	models.FieldDescription:        "description",
	models.FieldDate:               "date",
	models.FieldPaymentMethod:      "payment_method",
	models.FieldVendor:             "vendor",
	models.FieldCategoryID:         "category_id",
	models.FieldAccountID:          "account_id",
	models.FieldInstallments:       "installments",
	models.FieldInstallmentNo:      "installment_no",
	models.FieldInstallmentGroupID: "installment_group_id",
}

// PostgresTransactionStore keeps transaction records in the transactions table
type PostgresTransactionStore struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{
		db: db,
	}
}

// Migrate creates the transactions table and indexes when missing
func (p *PostgresTransactionStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// InsertMany writes all records inside one SQL transaction
func (p *PostgresTransactionStore) InsertMany(ctx context.Context, records []models.Transaction) (inserted []models.Transaction, err error) {
	const query = `INSERT INTO transactions (` + selectColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin insert", err)
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	stmt, err := dbTx.PrepareContext(ctx, query)
	if err != nil {
		return nil, wrap("prepare insert", err)
	}
	defer stmt.Close()

	inserted = make([]models.Transaction, 0, len(records))
	for _, r := range records {
		rec := r.Clone()
		rec.ID = uuid.NewString()
		rec.Amount = rec.Amount.Round(2)

		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.UserID, string(rec.Type), rec.Amount, rec.Description, rec.Date,
			nullString(rec.PaymentMethod), nullString(rec.Vendor), rec.CategoryID, rec.AccountID,
			nullInt(rec.Installments), nullInt(rec.InstallmentNo), nullString(rec.InstallmentGroupID),
		)
		if err != nil {
			return nil, wrap("insert", err)
		}
		inserted = append(inserted, rec)
	}

	if err = dbTx.Commit(); err != nil {
		return nil, wrap("commit insert", err)
	}
	return inserted, nil
}

func (p *PostgresTransactionStore) FindByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	const query = `SELECT ` + selectColumns + ` FROM transactions WHERE user_id = $1 AND id = $2`

	rec, err := scanTransaction(p.db.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return models.Transaction{}, fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
	}
	if err != nil {
		return models.Transaction{}, wrap("find by id", err)
	}
	return rec, nil
}

// FindByFields translates filters into a WHERE clause on whitelisted columns.
// Prefix filters use LIKE with the pattern escaped.
func (p *PostgresTransactionStore) FindByFields(ctx context.Context, userID string, filters []models.FieldFilter, order models.OrderBy) ([]models.Transaction, error) {
	where, args, err := buildWhere(userID, filters)
	if err != nil {
		return nil, err
	}
	orderBy, err := buildOrderBy(order)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + selectColumns + ` FROM transactions WHERE ` + where + ` ORDER BY ` + orderBy
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("find by fields", err)
	}
	defer rows.Close()

	var records []models.Transaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, wrap("scan transaction", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("find by fields", err)
	}
	return records, nil
}

func (p *PostgresTransactionStore) FindByGroupID(ctx context.Context, userID, groupID string) ([]models.Transaction, error) {
	return p.FindByFields(ctx, userID,
		[]models.FieldFilter{models.Eq(models.FieldInstallmentGroupID, groupID)},
		models.OrderBy{Field: models.FieldDate})
}

// DeleteByID removes one row, ErrNotFound when nothing was deleted
func (p *PostgresTransactionStore) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM transactions WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrap("delete by id", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
	}
	return nil
}

func (p *PostgresTransactionStore) DeleteByGroupID(ctx context.Context, groupID string) error {
	const query = `DELETE FROM transactions WHERE installment_group_id = $1`

	if _, err := p.db.ExecContext(ctx, query, groupID); err != nil {
		return wrap("delete by group id", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		rec                            models.Transaction
		txType                         string
		paymentMethod, vendor, groupID sql.NullString
		installments, installmentNo    sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &txType, &rec.Amount, &rec.Description, &rec.Date,
		&paymentMethod, &vendor, &rec.CategoryID, &rec.AccountID,
		&installments, &installmentNo, &groupID,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	rec.Type = models.TransactionType(txType)
	rec.PaymentMethod = fromNullString(paymentMethod)
	rec.Vendor = fromNullString(vendor)
	rec.InstallmentGroupID = fromNullString(groupID)
	rec.Installments = fromNullInt(installments)
	rec.InstallmentNo = fromNullInt(installmentNo)
	return rec, nil
}

// buildWhere turns filters into a parameterised WHERE clause scoped to userID
func buildWhere(userID string, filters []models.FieldFilter) (string, []any, error) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	for _, f := range filters {
		col, ok := columns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", f.Field)
		}
		if f.Value == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}

		value := f.Value
		if t, ok := value.(models.TransactionType); ok {
			value = string(t)
		}

		if f.Match == models.MatchPrefix {
			prefix, ok := value.(string)
			if !ok {
				return "", nil, fmt.Errorf("prefix filter on %q needs a string, got %T", f.Field, f.Value)
			}
			args = append(args, escapeLike(prefix))
			clauses = append(clauses, fmt.Sprintf(`%s LIKE $%d || '%%' ESCAPE '\'`, col, len(args)))
			continue
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func buildOrderBy(order models.OrderBy) (string, error) {
	field := order.Field
	if field == "" {
		field = models.FieldDate
	}
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("unknown order field %q", field)
	}
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, installment_no %s NULLS FIRST, id", col, dir, dir), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// wrap adds the operation and, for server errors, the postgres condition name
func wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s (%s): %w", op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

var _ interfaces.TransactionStore = (*PostgresTransactionStore)(nil)
