package application

import (
	"context"
	"errors"
	"testing"

	"faucet-gateway/faucet/domain"
)

func TestReporter_ListAllCountsSuccessfulGrants(t *testing.T) {
	h := newHarness(0, 5)
	ctx := context.Background()

	for _, dest := range []string{"ST_A", "ST_B", "ST_A"} {
		if _, err := h.orch.Grant(ctx, grantReq("1.2.3.4", dest)); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	h.node.script = []error{errUnreachable}
	_, _ = h.orch.Grant(ctx, grantReq("1.2.3.4", "ST_C"))

	rep, err := Reporter{Ledger: h.ledger}.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rep.Count != 3 || len(rep.Requests) != 3 {
		t.Fatalf("expected 3 rows, got count=%d len=%d", rep.Count, len(rep.Requests))
	}
	for i := 1; i < len(rep.Requests); i++ {
		if rep.Requests[i].GrantedAt.Before(rep.Requests[i-1].GrantedAt) {
			t.Fatalf("rows out of order at %d", i)
		}
	}
}

func TestReporter_EmptyAndFailure(t *testing.T) {
	rep, err := Reporter{}.ListAll(context.Background())
	if err != nil || rep.Count != 0 || rep.Requests == nil {
		t.Fatalf("expected empty non-nil report, got %+v err=%v", rep, err)
	}

	boom := errors.New("boom")
	_, err = Reporter{Ledger: &fakeLedger{findErr: boom}}.ListAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

type fakeReader struct {
	translated string
	balance    string
	err        error
	gotNode    string
	gotAddr    string
}

func (f *fakeReader) AccountNonce(context.Context, string, string) (uint64, error) { return 0, f.err }

func (f *fakeReader) AccountBalance(_ context.Context, nodeURL, address string) (string, error) {
	f.gotNode, f.gotAddr = nodeURL, address
	return f.balance, f.err
}

func (f *fakeReader) TranslateAddress(context.Context, string, string) (string, error) {
	return f.translated, f.err
}

func TestMainCheck_TranslatesThenQueriesBalance(t *testing.T) {
	r := &fakeReader{translated: "ST_TEST", balance: "0x10"}
	res, err := MainCheck{Reader: r, Network: "testnet", NodeURL: "http://node"}.Check(context.Background(), " SP_MAIN ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (MainCheckResult{MainnetAddress: "SP_MAIN", Address: "ST_TEST", Network: "testnet", Balance: "0x10"}) {
		t.Fatalf("unexpected result %+v", res)
	}
	if r.gotNode != "http://node" || r.gotAddr != "ST_TEST" {
		t.Fatalf("balance queried with %q %q", r.gotNode, r.gotAddr)
	}

	if _, err := (MainCheck{Reader: r, NodeURL: "x"}).Check(context.Background(), ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
