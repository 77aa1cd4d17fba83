package application

import (
	"context"
	"fmt"

	"faucet-gateway/faucet/domain"
)

type Report struct {
	Count    int                  `json:"count"`
	Requests []domain.LedgerEntry `json:"requests"`
}

// Reporter é a consulta administrativa: leitura pura do log inteiro.
type Reporter struct {
	Ledger domain.RequestLedger
}

func (r Reporter) ListAll(ctx context.Context) (Report, error) {
	if r.Ledger == nil {
		return Report{Requests: []domain.LedgerEntry{}}, nil
	}
	all, err := r.Ledger.All(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list requests: %w", err)
	}
	if all == nil {
		all = []domain.LedgerEntry{}
	}
	return Report{Count: len(all), Requests: all}, nil
}
