package tx

import (
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// Variant selects the shape of a transfer's outputs. It is either Direct or Swap.
type Variant interface {
	// Threshold is the amount selection must reach for the given fee.
	Threshold(fee uint64) (uint64, error)

	// Name labels the variant in logs and metrics.
	Name() string

	// sweep reports whether selection must collect every matching output.
	sweep() bool
}

// Direct pays Amount to the recipient and returns the rest to the sender.
// With Sweep set, Amount is ignored and everything collected after the fee
// is paid out.
type Direct struct {
	Amount uint64
	Sweep  bool
}

// Threshold returns fee + Amount, or fee + 1 for a sweep so that at least
// one unit is sent.
func (d Direct) Threshold(fee uint64) (uint64, error) {
	if d.Sweep {
		return addChecked(fee, 1)
	}
	return addChecked(fee, d.Amount)
}

func (d Direct) Name() string {
	if d.Sweep {
		return "sweep"
	}
	return "direct"
}

func (d Direct) sweep() bool { return d.Sweep }

// Swap settles a token sale: the memo rides on a zero-amount output to the
// token recipient and Price is paid to Receiver.
type Swap struct {
	Receiver ledger.PublicKey
	Price    uint64
}

// Threshold returns fee + Price.
func (s Swap) Threshold(fee uint64) (uint64, error) {
	return addChecked(fee, s.Price)
}

func (s Swap) Name() string { return "swap" }

func (s Swap) sweep() bool { return false }

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrInvalidParams, a, b)
	}
	return sum, nil
}

// PlannedOutput is one output template with its optional memo.
type PlannedOutput struct {
	Template ledger.AssetRecordTemplate
	Memo     *string
}

// Plan is the ordered output set of a transfer. Fee is always the first
// output and is paid to the burn key.
type Plan struct {
	Outputs []PlannedOutput
	Fee     uint64
	Payment uint64
	Change  uint64
}

// Sum returns the total amount of asset across all outputs.
func (p *Plan) Sum(asset ledger.AssetType) uint64 {
	var sum uint64
	for _, o := range p.Outputs {
		if o.Template.AssetType == asset {
			sum += o.Template.Amount
		}
	}
	return sum
}

// PlanParams are the inputs to BuildPlan apart from the collected total.
type PlanParams struct {
	Fee       uint64
	Asset     ledger.AssetType
	Sender    ledger.PublicKey
	Recipient ledger.PublicKey
	Burn      ledger.PublicKey
	Memo      *string
	Variant   Variant
}

// BuildPlan lays out the outputs for total collected units of p.Asset.
//
//	Direct: fee -> burn, payment (memo) -> recipient, change -> sender
//	Swap:   fee -> burn, 0 (memo) -> recipient, change -> sender, price -> receiver
//
// The outputs always sum to total. A zero change output is kept.
func BuildPlan(total uint64, p PlanParams) (*Plan, error) {
	if p.Variant == nil {
		return nil, fmt.Errorf("%w: no transfer variant", ErrInvalidParams)
	}
	need, err := p.Variant.Threshold(p.Fee)
	if err != nil {
		return nil, err
	}
	if total < need {
		return nil, insufficient(need, total)
	}

	recordType := ledger.NonConfidentialAmountNonConfidentialAssetType
	out := func(amount uint64, to ledger.PublicKey, memo *string) PlannedOutput {
		return PlannedOutput{Template: ledger.NewTemplate(amount, p.Asset, recordType, to), Memo: memo}
	}

	plan := &Plan{Fee: p.Fee}
	switch v := p.Variant.(type) {
	case Direct:
		plan.Payment = v.Amount
		if v.Sweep {
			plan.Payment = total - p.Fee
		}
		plan.Change = total - p.Fee - plan.Payment
		plan.Outputs = []PlannedOutput{
			out(p.Fee, p.Burn, nil),
			out(plan.Payment, p.Recipient, p.Memo),
			out(plan.Change, p.Sender, nil),
		}
	case Swap:
		plan.Payment = v.Price
		plan.Change = total - p.Fee - v.Price
		plan.Outputs = []PlannedOutput{
			out(p.Fee, p.Burn, nil),
			out(0, p.Recipient, p.Memo),
			out(plan.Change, p.Sender, nil),
			out(v.Price, v.Receiver, nil),
		}
	default:
		return nil, fmt.Errorf("%w: unknown transfer variant %T", ErrInvalidParams, p.Variant)
	}
	return plan, nil
}
