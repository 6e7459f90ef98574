package tx

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libxfr-go/ledger"
)

// recordingBuilder logs the calls it receives and can fail at a named step.
type recordingBuilder struct {
	calls  []string
	failAt string
}

func (b *recordingBuilder) step(name string) error {
	b.calls = append(b.calls, name)
	if name == b.failAt {
		return errors.New("boom")
	}
	return nil
}

func (b *recordingBuilder) AddInput(ref ledger.TxoRef, _ ledger.OpenAssetRecord, amount uint64) error {
	return b.step("input")
}

func (b *recordingBuilder) AddOutput(t ledger.AssetRecordTemplate, memo *string) error {
	return b.step("output")
}

func (b *recordingBuilder) Create(ledger.TransferType) error { return b.step("create") }

func (b *recordingBuilder) Sign(ledger.Signer) error { return b.step("sign") }

func (b *recordingBuilder) Transaction() (ledger.Operation, error) {
	if err := b.step("extract"); err != nil {
		return ledger.Operation{}, err
	}
	return ledger.Operation{TransferAsset: &ledger.TransferAsset{}}, nil
}

func directFixture(t *testing.T, owner ledger.PublicKey) (*Selection, *Plan) {
	t.Helper()
	sel, err := Select(baseUtxos(owner, 4, 4), owner, ledger.BaseAssetType, 8, SelectOptions{})
	require.NoError(t, err)
	m := `{"p":"brc-20","op":"transfer","tick":"ordi","amt":"5"}`
	p := planParams(3, Direct{Amount: 5}, &m)
	p.Sender = owner
	plan, err := BuildPlan(sel.Total, p)
	require.NoError(t, err)
	return sel, plan
}

func TestAssemble_CallOrder(t *testing.T) {
	signer := &fakeSigner{pk: testKey(1)}
	sel, plan := directFixture(t, signer.pk)

	b := &recordingBuilder{}
	_, err := Assemble(b, sel, plan, signer)
	require.NoError(t, err)
	assert.Equal(t, []string{"input", "input", "output", "output", "output", "create", "sign", "extract"}, b.calls)
}

func TestAssemble_AbortsAtFirstFailure(t *testing.T) {
	signer := &fakeSigner{pk: testKey(1)}
	sel, plan := directFixture(t, signer.pk)

	for _, step := range []string{"input", "output", "create", "sign", "extract"} {
		t.Run(step, func(t *testing.T) {
			b := &recordingBuilder{failAt: step}
			op, err := Assemble(b, sel, plan, signer)
			assert.ErrorIs(t, err, ErrLedgerBuilder)
			assert.Nil(t, op.TransferAsset)
			assert.Equal(t, step, b.calls[len(b.calls)-1])
		})
	}
}

func TestAssemble_LedgerBuilder(t *testing.T) {
	signer := &fakeSigner{pk: testKey(1)}
	sel, plan := directFixture(t, signer.pk)

	op, err := Assemble(NewTransferBuilder(), sel, plan, signer)
	require.NoError(t, err)
	require.NotNil(t, op.TransferAsset)

	body := op.TransferAsset.Body
	require.Len(t, body.Inputs, 2)
	assert.Equal(t, ledger.AbsoluteRef(100), body.Inputs[0])
	assert.Equal(t, ledger.AbsoluteRef(101), body.Inputs[1])
	require.Len(t, body.Outputs, 3)
	assert.True(t, body.Outputs[0].Record.PublicKey.IsBurn())
	assert.Equal(t, uint64(3), body.Outputs[0].Record.Amount.Value)
	require.NotNil(t, body.Outputs[1].Memo)
	assert.Contains(t, *body.Outputs[1].Memo, `"tick":"ordi"`)
	assert.Equal(t, ledger.TransferStandard, body.TransferType)

	require.Len(t, op.TransferAsset.BodySignatures, 1)
	assert.Equal(t, signer.pk, op.TransferAsset.BodySignatures[0].Address)

	_, err = json.Marshal(op)
	assert.NoError(t, err)
}

func TestAssemble_SignerFailure(t *testing.T) {
	signer := &fakeSigner{pk: testKey(1), err: errors.New("hsm offline")}
	sel, plan := directFixture(t, signer.pk)

	_, err := Assemble(NewTransferBuilder(), sel, plan, signer)
	assert.ErrorIs(t, err, ErrLedgerBuilder)
	assert.ErrorIs(t, err, ledger.ErrSigningFailed)
}

func TestAssemble_UnbalancedPlanRejected(t *testing.T) {
	signer := &fakeSigner{pk: testKey(1)}
	sel, plan := directFixture(t, signer.pk)
	plan.Outputs[2].Template.Amount++

	_, err := Assemble(NewTransferBuilder(), sel, plan, signer)
	assert.ErrorIs(t, err, ErrLedgerBuilder)
	assert.ErrorIs(t, err, ledger.ErrUnbalanced)
}

func TestAssemble_NilArguments(t *testing.T) {
	_, err := Assemble(nil, &Selection{}, &Plan{}, &fakeSigner{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}
