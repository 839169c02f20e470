package replay

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/replay/mocks"
)

func TestLedgerCloseDelegatesHistoricalChain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockStateMap(ctrl)
	parent := [32]byte{0x0A}
	h0 := [32]byte{0x0B}

	m.EXPECT().AdvanceHistoricalChain(uint32(7), parent).Return(nil)
	m.EXPECT().RootHash().Return(h0, nil)

	eng := New(m, 6, WithLogger(log.Discard()))
	require.NoError(t, eng.OnLedgerClose(7, h0, parent))

	// No transactions: consistent only because the map already hashes to h0.
	ok, err := eng.IsConsistent()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerCloseWithoutTransactionsKeepsDivergence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockStateMap(ctrl)
	m.EXPECT().AdvanceHistoricalChain(gomock.Any(), gomock.Any()).Return(nil)
	m.EXPECT().RootHash().Return([32]byte{0x01}, nil)

	eng := New(m, 6, WithLogger(log.Discard()))
	require.NoError(t, eng.OnLedgerClose(7, [32]byte{0x02}, [32]byte{}))

	ok, err := eng.IsConsistent()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoricalChainFailureAbortsLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("boom")
	m := mocks.NewMockStateMap(ctrl)
	m.EXPECT().AdvanceHistoricalChain(uint32(7), gomock.Any()).Return(boom)

	eng := New(m, 6, WithLogger(log.Discard()))
	err := eng.OnLedgerClose(7, [32]byte{}, [32]byte{})
	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, boom)

	err = eng.OnTransaction(&effect.Batch{Position: 0})
	assert.ErrorIs(t, err, ErrLedgerAborted)
}

func TestRootHashErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("encode failed")
	m := mocks.NewMockStateMap(ctrl)
	m.EXPECT().RootHash().Return([32]byte{}, boom)

	eng := New(m, 6, WithLogger(log.Discard()))
	_, err := eng.IsConsistent()
	assert.ErrorIs(t, err, boom)
}
