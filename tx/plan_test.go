package tx

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libxfr-go/ledger"
)

func planParams(fee uint64, v Variant, memo *string) PlanParams {
	return PlanParams{
		Fee:       fee,
		Asset:     ledger.BaseAssetType,
		Sender:    testKey(1),
		Recipient: testKey(2),
		Burn:      ledger.BurnPublicKey,
		Memo:      memo,
		Variant:   v,
	}
}

func amounts(p *Plan) []uint64 {
	out := make([]uint64, len(p.Outputs))
	for i, o := range p.Outputs {
		out[i] = o.Template.Amount
	}
	return out
}

func recipients(p *Plan) []ledger.PublicKey {
	out := make([]ledger.PublicKey, len(p.Outputs))
	for i, o := range p.Outputs {
		out[i] = o.Template.PublicKey
	}
	return out
}

func TestBuildPlan_Direct(t *testing.T) {
	m := `{"p":"brc-20","op":"transfer","tick":"ordi","amt":"5"}`
	plan, err := BuildPlan(20, planParams(3, Direct{Amount: 5}, &m))
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 5, 12}, amounts(plan))
	assert.Equal(t, []ledger.PublicKey{ledger.BurnPublicKey, testKey(2), testKey(1)}, recipients(plan))
	assert.Nil(t, plan.Outputs[0].Memo)
	require.NotNil(t, plan.Outputs[1].Memo)
	assert.Equal(t, m, *plan.Outputs[1].Memo)
	assert.Nil(t, plan.Outputs[2].Memo)
	assert.Equal(t, uint64(5), plan.Payment)
	assert.Equal(t, uint64(12), plan.Change)
	for _, o := range plan.Outputs {
		assert.Equal(t, ledger.NonConfidentialAmountNonConfidentialAssetType, o.Template.RecordType)
	}
}

func TestBuildPlan_ExactThresholdKeepsZeroChange(t *testing.T) {
	plan, err := BuildPlan(8, planParams(3, Direct{Amount: 5}, nil))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5, 0}, amounts(plan))
}

func TestBuildPlan_Sweep(t *testing.T) {
	plan, err := BuildPlan(100, planParams(3, Direct{Sweep: true, Amount: 1}, nil))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 97, 0}, amounts(plan))

	_, err = BuildPlan(3, planParams(3, Direct{Sweep: true}, nil))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBuildPlan_Swap(t *testing.T) {
	receiver := testKey(9)
	m := `{"p":"brc-20","op":"transfer","tick":"ordi","amt":"1000"}`
	plan, err := BuildPlan(100, planParams(1, Swap{Receiver: receiver, Price: 30}, &m))
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 0, 69, 30}, amounts(plan))
	assert.Equal(t, []ledger.PublicKey{ledger.BurnPublicKey, testKey(2), testKey(1), receiver}, recipients(plan))
	require.NotNil(t, plan.Outputs[1].Memo)
	assert.Equal(t, m, *plan.Outputs[1].Memo)
	assert.Nil(t, plan.Outputs[3].Memo)
	assert.Equal(t, uint64(100), plan.Sum(ledger.BaseAssetType))
}

func TestBuildPlan_Insufficient(t *testing.T) {
	_, err := BuildPlan(12, planParams(3, Direct{Amount: 10}, nil))
	var ife *InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, uint64(1), ife.Shortfall)

	_, err = BuildPlan(30, planParams(1, Swap{Price: 30}, nil))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBuildPlan_InvalidParams(t *testing.T) {
	_, err := BuildPlan(10, planParams(3, nil, nil))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = BuildPlan(10, planParams(3, &Direct{Amount: 1}, nil))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = BuildPlan(^uint64(0), planParams(2, Direct{Amount: ^uint64(0)}, nil))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestBuildPlan_ValueConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		fee := uint64(rng.Intn(50))
		total := uint64(rng.Intn(10_000))
		var v Variant
		switch i % 3 {
		case 0:
			v = Direct{Amount: uint64(rng.Intn(10_000))}
		case 1:
			v = Direct{Sweep: true}
		default:
			v = Swap{Receiver: testKey(9), Price: uint64(rng.Intn(10_000))}
		}

		plan, err := BuildPlan(total, planParams(fee, v, nil))
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientFunds)
			need, _ := v.Threshold(fee)
			assert.Less(t, total, need)
			continue
		}
		assert.Equal(t, total, plan.Sum(ledger.BaseAssetType), "variant %s", v.Name())
		assert.Equal(t, fee, plan.Outputs[0].Template.Amount)
		assert.True(t, plan.Outputs[0].Template.PublicKey.IsBurn())
	}
}
