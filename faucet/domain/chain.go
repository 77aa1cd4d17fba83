package domain

import (
	"context"
	"fmt"
)

// ReasonBadNonce é o código de rejeição do nó para conflito de sequência.
const ReasonBadNonce = "BadNonce"

// Secret guarda material sensível (ex: chave de assinatura) e nunca se imprime.
type Secret string

func (Secret) String() string   { return "[redacted]" }
func (Secret) GoString() string { return "[redacted]" }

// Reveal devolve o valor bruto. Use apenas ao montar a chamada ao assinador.
func (s Secret) Reveal() string { return string(s) }

// Transfer é tudo que o cliente externo precisa para montar, assinar e
// transmitir uma transferência. O núcleo nunca toca no formato binário.
type Transfer struct {
	Destination string
	Amount      uint64
	Sequence    uint64
	SigningKey  Secret
	Network     string
	NodeURL     string
	Memo        string
}

// Rejection é uma falha estruturada devolvida pelo nó do ledger.
type Rejection struct {
	Reason  string
	Message string
	// Expected só vem preenchido em conflitos de sequência.
	Expected *uint64
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("ledger rejected transaction: %s", r.Reason)
	}
	return fmt.Sprintf("ledger rejected transaction: %s: %s", r.Reason, r.Message)
}

// SequenceConflict informa se a rejeição é um conflito de sequência com valor esperado.
func (r *Rejection) SequenceConflict() (uint64, bool) {
	if r == nil || r.Reason != ReasonBadNonce || r.Expected == nil {
		return 0, false
	}
	return *r.Expected, true
}

// Broadcaster delega construção, assinatura e broadcast ao colaborador externo.
//
// Sucesso devolve o identificador opaco da transação. Rejeições do nó chegam como
// *Rejection; qualquer outro erro é falha de transporte.
type Broadcaster interface {
	BuildAndBroadcastTransfer(ctx context.Context, t Transfer) (string, error)
}

// AccountReader faz leituras sem efeito colateral no nó do ledger.
type AccountReader interface {
	AccountNonce(ctx context.Context, nodeURL, address string) (uint64, error)
	AccountBalance(ctx context.Context, nodeURL, address string) (string, error)
	TranslateAddress(ctx context.Context, address, network string) (string, error)
}
