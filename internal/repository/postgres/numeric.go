package postgres

import (
	"fmt"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func amountToPgNumeric(amount uint64) (pgtype.Numeric, error) {
	return decimalToPgNumeric(domain.AmountToDecimal(amount))
}

func pgNumericToAmount(n pgtype.Numeric) (uint64, error) {
	return domain.DecimalToAmount(pgNumericToDecimal(n))
}

func amountsToPgNumeric(amounts []uint64) ([]pgtype.Numeric, error) {
	out := make([]pgtype.Numeric, len(amounts))
	for i, a := range amounts {
		num, err := amountToPgNumeric(a)
		if err != nil {
			return nil, err
		}
		out[i] = num
	}
	return out, nil
}

func pgNumericsToAmounts(nums []pgtype.Numeric) ([]uint64, error) {
	out := make([]uint64, len(nums))
	for i, n := range nums {
		a, err := pgNumericToAmount(n)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func bytesToIdentity(b []byte) (domain.Identity, error) {
	var id domain.Identity
	if len(b) != domain.IdentitySize {
		return id, fmt.Errorf("%w: stored key has %d bytes", domain.ErrInvalidIdentity, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func bytesToIdentities(values [][]byte) ([]domain.Identity, error) {
	out := make([]domain.Identity, len(values))
	for i, b := range values {
		id, err := bytesToIdentity(b)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func identitiesToBytes(ids []domain.Identity) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		out[i] = id.Bytes()
	}
	return out
}
