package pooldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/pool"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	owner := address.FromBytes([]byte{0xAA})
	manager := address.FromBytes([]byte{0xBB})
	p := pool.NewPool(owner, manager, quantity.NewFromUint64(10))
	require.NoError(t, p.Deposit(address.FromBytes([]byte{1}), quantity.NewFromUint64(100)))

	require.NoError(t, s.Save(p))

	restored, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, owner, restored.Owner)
	require.EqualValues(t, "100", restored.Accounts[address.FromBytes([]byte{1})].Unstaked.String())
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	p := pool.NewPool(address.FromBytes([]byte{1}), address.FromBytes([]byte{2}), quantity.NewFromUint64(10))
	require.NoError(t, s.Checkpoint(42, p))

	restored, err := s.LoadCheckpoint(42)
	require.NoError(t, err)
	require.Equal(t, p.Owner, restored.Owner)
}
