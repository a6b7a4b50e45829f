package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/target/demobank-api/internal/data/pgxutil"
	"github.com/target/demobank-api/internal/domain/model"
	apperrors "github.com/target/demobank-api/internal/errors"
)

const accountColumns = `id::text AS id, name, balance::float8 AS balance, currency, created_at`

const accountListQuery = `SELECT ` + accountColumns + `
	FROM accounts
	ORDER BY created_at DESC, id DESC
	LIMIT $1`

const accountInsertQuery = `INSERT INTO accounts (name, balance, currency, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + accountColumns

// AccountRepo provides database operations for accounts.
type AccountRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAccountRepo creates a new AccountRepo with real time provider.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAccountRepoWithTimeProvider creates a new AccountRepo with a custom time provider (useful for tests).
func NewAccountRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AccountRepo {
	return &AccountRepo{DB: db, timeProvider: tp}
}

// List returns the newest accounts first.
func (r *AccountRepo) List(ctx context.Context, opts model.AccountsListOptions) ([]*model.Account, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = model.DefaultAccountsLimit
	}

	var rowsOut []model.Account
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, accountListQuery, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Account])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Account, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	if req == nil {
		return nil, errors.New("create account request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	var out model.Account
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, accountInsertQuery,
			req.Name, req.Balance, req.Currency, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Ping verifies the database answers.
func (r *AccountRepo) Ping(ctx context.Context) error {
	if err := r.DB.PingContext(ctx); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Count returns the number of stored accounts.
func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&n); err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return n, nil
}
