package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faucet-gateway/faucet/domain"
)

type MainCheckResult struct {
	MainnetAddress string `json:"mainnet_address"`
	Address        string `json:"address"`
	Network        string `json:"network"`
	Balance        string `json:"balance"`
}

// MainCheck traduz um endereço de mainnet para o formato da rede do faucet e
// consulta o saldo no nó. É só leitura e não passa pelo caminho de grant.
type MainCheck struct {
	Reader  domain.AccountReader
	Network string
	NodeURL string
}

func (m MainCheck) Check(ctx context.Context, mainnetAddress string) (MainCheckResult, error) {
	mainnetAddress = strings.TrimSpace(mainnetAddress)
	if mainnetAddress == "" {
		return MainCheckResult{}, domain.Fail(domain.ErrInvalidRequest, "", errors.New("address is required"))
	}
	if m.Reader == nil || m.NodeURL == "" {
		return MainCheckResult{}, errors.New("main check is not configured")
	}

	addr, err := m.Reader.TranslateAddress(ctx, mainnetAddress, m.Network)
	if err != nil {
		return MainCheckResult{}, fmt.Errorf("main check: %w", err)
	}
	bal, err := m.Reader.AccountBalance(ctx, m.NodeURL, addr)
	if err != nil {
		return MainCheckResult{}, fmt.Errorf("main check: %w", err)
	}
	return MainCheckResult{
		MainnetAddress: mainnetAddress,
		Address:        addr,
		Network:        m.Network,
		Balance:        bal,
	}, nil
}
