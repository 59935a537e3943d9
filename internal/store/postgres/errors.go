package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

var (
	errNilDBClient       = errors.New("db client is nil")
	errNilPostgresClient = errors.New("postgres client is nil")

	ErrQueryCanceled   = errors.New("query canceled")
	ErrUndefinedColumn = errors.New("undefined column")
	ErrUndefinedTable  = errors.New("undefined table")
	ErrInvalidInput    = errors.New("invalid input for column type")
)

func checkPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.QueryCanceled:
			return fmt.Errorf("%w [%s]", ErrQueryCanceled, pgErr.Message)
		case pgerrcode.UndefinedColumn:
			return fmt.Errorf("%w [%s]", ErrUndefinedColumn, pgErr.Message)
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("%w [%s]", ErrUndefinedTable, pgErr.Message)
		case pgerrcode.InvalidTextRepresentation, pgerrcode.InvalidDatetimeFormat:
			return fmt.Errorf("%w [%s]", ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}
