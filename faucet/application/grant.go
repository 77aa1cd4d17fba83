package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"go.uber.org/zap"
)

const (
	DefaultBroadcastTimeout = 10 * time.Second
	DefaultMemo             = "Faucet"
)

// Orchestrator executa um grant de ponta a ponta: quota, seção crítica de
// sequência, broadcast com um único retry em conflito, e gravação no log.
type Orchestrator struct {
	Gate      QuotaGate
	Quota     domain.Quota
	Sequences *SequenceRegistry
	// Nodes mapeia rede -> URL do nó. DefaultNetwork é usado quando o pedido não traz rede.
	Nodes          map[string]string
	DefaultNetwork string

	Broadcaster domain.Broadcaster
	Ledger      domain.RequestLedger
	Stats       domain.StatsStore

	SigningKey       domain.Secret
	Amount           uint64
	Memo             string
	BroadcastTimeout time.Duration

	Now func() time.Time
	Log *zap.Logger
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Log != nil {
		return o.Log
	}
	return zap.NewNop()
}

// Grant devolve o tx id ("0x...") ou um erro cuja categoria é um dos
// domain.Err*: ErrInvalidRequest, ErrRateLimited, ErrBroadcastFailed ou ErrStorage.
func (o *Orchestrator) Grant(ctx context.Context, req domain.GrantRequest) (string, error) {
	req.Destination = strings.TrimSpace(req.Destination)
	req.Network = strings.ToLower(strings.TrimSpace(req.Network))
	if req.Network == "" {
		req.Network = o.DefaultNetwork
	}
	log := o.logger().With(
		zap.String("requester", string(req.Requester)),
		zap.String("address", req.Destination),
		zap.String("network", req.Network),
		zap.Uint64("amount", o.Amount),
	)

	if req.Destination == "" {
		return "", domain.Fail(domain.ErrInvalidRequest, "", errors.New("address is required"))
	}
	nodeURL, okNode := o.Nodes[req.Network]
	coord, okSeq := o.Sequences.For(req.Network)
	if !okNode || !okSeq {
		return "", domain.Fail(domain.ErrInvalidRequest, "", fmt.Errorf("unknown network %q", req.Network))
	}

	dec, err := o.Gate.Allow(ctx, req.Requester, req.Destination, o.Quota)
	if err != nil {
		log.Error("quota check failed", zap.Error(err))
		o.emit(ctx, req, domain.OutcomeFailed, 0)
		return "", domain.Fail(domain.ErrStorage, "", err)
	}
	if !dec.Allowed {
		log.Info("too many requests", zap.Int("recent", dec.Count), zap.Duration("retry_after", dec.RetryAfter))
		o.emit(ctx, req, domain.OutcomeRateLimited, 0)
		f := domain.Fail(domain.ErrRateLimited, "", nil)
		f.RetryAfter = dec.RetryAfter
		return "", f
	}

	lease, err := coord.Acquire(ctx)
	if err != nil {
		log.Warn("sequence coordinator unavailable", zap.Error(err))
		o.emit(ctx, req, domain.OutcomeFailed, 0)
		return "", domain.Fail(domain.ErrBroadcastFailed, "SequenceBusy", err)
	}
	txid, seq, err := o.broadcast(ctx, lease, req, domain.Transfer{
		Destination: req.Destination,
		Amount:      o.Amount,
		SigningKey:  o.SigningKey,
		Network:     req.Network,
		NodeURL:     nodeURL,
		Memo:        o.memo(),
	}, log)
	if err != nil {
		lease.Release()
		log.Warn("grant failed", zap.Error(err))
		o.emit(ctx, req, domain.OutcomeFailed, 0)
		return "", err
	}
	next := lease.Advance()
	lease.Release()

	// o broadcast já saiu: a gravação não pode morrer junto com a requisição do cliente.
	entry := domain.LedgerEntry{
		Requester:   req.Requester,
		Destination: req.Destination,
		TxID:        txid,
		GrantedAt:   o.now(),
		Sequence:    seq,
		Network:     req.Network,
		Amount:      o.Amount,
	}
	if err := o.Ledger.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("grant broadcast but not recorded", zap.String("tx_id", txid), zap.Uint64("nonce", seq), zap.Error(err))
		o.emit(ctx, req, domain.OutcomeFailed, seq)
		return "", domain.Fail(domain.ErrStorage, "", err)
	}

	log.Info("fauceted funds", zap.String("tx_id", txid), zap.Uint64("nonce", seq), zap.Uint64("next_nonce", next))
	o.emit(ctx, req, domain.OutcomeGranted, seq)
	return txid, nil
}

// broadcast transmite com o número corrente do lease. Em conflito de sequência
// faz exatamente um resync e um retry; um segundo conflito é falha definitiva.
func (o *Orchestrator) broadcast(ctx context.Context, lease *Lease, req domain.GrantRequest, t domain.Transfer, log *zap.Logger) (string, uint64, error) {
	resynced := false
	for {
		t.Sequence = lease.Current()
		txid, err := o.send(ctx, t)
		if err == nil {
			return txid, t.Sequence, nil
		}

		var rej *domain.Rejection
		if !errors.As(err, &rej) {
			reason := ""
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "Timeout"
			}
			return "", 0, domain.Fail(domain.ErrBroadcastFailed, reason, err)
		}
		expected, conflict := rej.SequenceConflict()
		if !conflict {
			return "", 0, domain.Fail(domain.ErrBroadcastFailed, rej.Reason, rej)
		}
		if resynced {
			return "", 0, domain.Fail(domain.ErrBroadcastFailed, rej.Reason,
				fmt.Errorf("%w persisted after resync: %w", domain.ErrSequenceConflict, rej))
		}

		log.Info("sequence conflict", zap.Uint64("used", t.Sequence), zap.Uint64("expected", expected))
		lease.ResyncTo(expected)
		o.emit(ctx, req, domain.OutcomeResync, expected)
		resynced = true
	}
}

func (o *Orchestrator) send(ctx context.Context, t domain.Transfer) (string, error) {
	timeout := o.BroadcastTimeout
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.Broadcaster.BuildAndBroadcastTransfer(sendCtx, t)
}

func (o *Orchestrator) memo() string {
	if o.Memo != "" {
		return o.Memo
	}
	return DefaultMemo
}

func (o *Orchestrator) emit(ctx context.Context, req domain.GrantRequest, outcome domain.Outcome, seq uint64) {
	if o.Stats == nil {
		return
	}
	err := o.Stats.Record(context.WithoutCancel(ctx), domain.StatsEvent{
		Requester:   req.Requester,
		Destination: req.Destination,
		Network:     req.Network,
		Outcome:     outcome,
		Sequence:    seq,
		At:          o.now(),
	})
	if err != nil {
		o.logger().Debug("stats record failed", zap.String("outcome", string(outcome)), zap.Error(err))
	}
}
